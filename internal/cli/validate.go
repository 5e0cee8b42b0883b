package cli

import (
	"github.com/aretw0/sequence/pkg/pipeline"
	"github.com/aretw0/sequence/pkg/registry"
)

// Validate checks that the pipeline file parses and that every step it uses
// exists in the built-in registry. It returns the pipeline name.
func Validate(path string) (string, error) {
	def, err := pipeline.LoadFile(path)
	if err != nil {
		return "", err
	}
	if _, err := pipeline.Compile(def, registry.Default()); err != nil {
		return "", err
	}
	return def.Name, nil
}
