package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

const mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks request headers and
// pipeline items whose name matches one of the patterns before they are
// persisted. Masked values are not restored on load.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) matches(name string) bool {
	for _, p := range m.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) Save(ctx context.Context, runID string, snap *domain.Snapshot) error {
	// Work on a copy; the caller may still be using the context.
	cloned := snap.Clone()

	if cloned.Request != nil {
		for name, values := range cloned.Request.Header {
			if m.matches(name) {
				for i := range values {
					values[i] = mask
				}
			}
		}
	}
	if cloned.Data != nil {
		cloned.Data.Items = deepCopyMap(cloned.Data.Items)
		m.maskMap(cloned.Data.Items)
	}

	return m.next.Save(ctx, runID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

func (m *piiMiddleware) maskMap(items map[string]any) {
	for k, v := range items {
		if m.matches(k) {
			items[k] = mask
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			m.maskMap(sub)
		}
	}
}
