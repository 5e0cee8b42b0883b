package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/sequence/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Definition is a named list of pipeline entries.
type Definition struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Entry `yaml:"steps" json:"steps"`
}

// Entry is either a step reference or a loop.
type Entry struct {
	Use  string         `yaml:"use,omitempty" json:"use,omitempty"`
	With map[string]any `yaml:"with,omitempty" json:"with,omitempty"`
	Loop *LoopEntry     `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// LoopEntry pairs a condition step with a body step.
type LoopEntry struct {
	Cond Ref `yaml:"cond" json:"cond"`
	Body Ref `yaml:"body" json:"body"`
}

// Ref names a registered step and its parameters.
type Ref struct {
	Use  string         `yaml:"use" json:"use"`
	With map[string]any `yaml:"with,omitempty" json:"with,omitempty"`
}

// Parse decodes a definition. JSON is used when ext is ".json", YAML otherwise.
func Parse(data []byte, ext string) (*Definition, error) {
	var def Definition
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse pipeline json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse pipeline yaml: %w", err)
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and parses a definition file.
// A definition without a name is named after the file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}

	ext := filepath.Ext(path)
	if !hasName(data, ext) {
		data = withName(data, ext, strings.TrimSuffix(filepath.Base(path), ext))
	}
	return Parse(data, ext)
}

// LoadDir loads every .yaml, .yml and .json file of dir, keyed by name.
func LoadDir(dir string) (map[string]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline dir: %w", err)
	}

	defs := make(map[string]*Definition)
	for _, e := range entries {
		if e.IsDir() || !isPipelineFile(e.Name()) {
			continue
		}
		def, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := defs[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate pipeline name %q", domain.ErrInvalidPipeline, def.Name)
		}
		defs[def.Name] = def
	}
	return defs, nil
}

// Validate checks the shape of the definition. Step names are checked
// against a registry by Compile.
func (d *Definition) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	for i, e := range d.Steps {
		switch {
		case e.Use != "" && e.Loop != nil:
			errs = append(errs, fmt.Errorf("step %d: use and loop are exclusive", i))
		case e.Use == "" && e.Loop == nil:
			errs = append(errs, fmt.Errorf("step %d: one of use or loop is required", i))
		case e.Loop != nil && (e.Loop.Cond.Use == "" || e.Loop.Body.Use == ""):
			errs = append(errs, fmt.Errorf("step %d: loop needs cond.use and body.use", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidPipeline, errors.Join(errs...))
	}
	return nil
}

func isPipelineFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func hasName(data []byte, ext string) bool {
	var probe struct {
		Name string `yaml:"name" json:"name"`
	}
	if strings.EqualFold(ext, ".json") {
		_ = json.Unmarshal(data, &probe)
	} else {
		_ = yaml.Unmarshal(data, &probe)
	}
	return probe.Name != ""
}

func withName(data []byte, ext, name string) []byte {
	var doc map[string]any
	if strings.EqualFold(ext, ".json") {
		if json.Unmarshal(data, &doc) != nil || doc == nil {
			return data
		}
		doc["name"] = name
		out, err := json.Marshal(doc)
		if err != nil {
			return data
		}
		return out
	}
	if yaml.Unmarshal(data, &doc) != nil || doc == nil {
		return data
	}
	doc["name"] = name
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data
	}
	return out
}
