package pipeline

import (
	"fmt"

	"github.com/aretw0/sequence"
	"github.com/aretw0/sequence/pkg/registry"
)

// Compile builds a Sequence from the definition, resolving every step
// through reg. The sequence is named after the definition.
func Compile(def *Definition, reg *registry.Registry, opts ...sequence.Option) (*sequence.Sequence, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	opts = append([]sequence.Option{sequence.WithName(def.Name)}, opts...)
	seq := sequence.New(opts...)

	for i, e := range def.Steps {
		if e.Loop == nil {
			fn, err := reg.Build(e.Use, e.With)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s, step %d: %w", def.Name, i, err)
			}
			seq.Add(fn)
			continue
		}

		cond, err := reg.Build(e.Loop.Cond.Use, e.Loop.Cond.With)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s, step %d cond: %w", def.Name, i, err)
		}
		body, err := reg.Build(e.Loop.Body.Use, e.Loop.Body.With)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s, step %d body: %w", def.Name, i, err)
		}
		seq.Loop(cond, body)
	}
	return seq, nil
}
