package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/sequence"
	"github.com/aretw0/sequence/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Factory builds a step from the parameters of a pipeline entry.
type Factory func(params map[string]any) (sequence.StepFunc, error)

// Registry manages the available step factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry.
// If a factory with the same name exists, it is overwritten.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Build looks up a factory by name and builds a step with params.
// Returns domain.ErrUnknownStep if the factory is not found.
func (r *Registry) Build(name string, params map[string]any) (sequence.StepFunc, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStep, name)
	}

	fn, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", name, err)
	}
	return fn, nil
}

// Names returns the registered factory names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode copies params into out (a pointer to a struct tagged with
// `mapstructure`). Strings are accepted for numbers, booleans and durations.
func Decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
