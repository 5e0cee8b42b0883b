package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/sequence/pkg/domain"
	"github.com/aretw0/sequence/pkg/ports"
)

// Mask replaces the values of masked keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, in the input and result
// of each record, the values of map keys matching any of the patterns.
// Masking is one-way: Load returns the masked values.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, record *domain.RunRecord) error {
	// The caller keeps the unmasked record.
	masked := *record
	masked.Input = m.mask(record.Input)
	masked.Result = m.mask(record.Result)
	return m.next.Save(ctx, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask returns a copy of v with matching map keys masked, recursing into
// nested maps and slices.
func (m *piiMiddleware) mask(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if m.matches(k) {
				out[k] = Mask
				continue
			}
			out[k] = m.mask(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = m.mask(val)
		}
		return out
	default:
		return v
	}
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
