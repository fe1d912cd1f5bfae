// Package registry resolves contributors by capability name.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// Factory builds a contributor from its loosely typed options.
type Factory func(ctx context.Context, options map[string]any) (ports.Contributor, error)

// Registry maps capabilities to factories. It implements ports.Resolver.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	options   map[string]map[string]any
}

var _ ports.Resolver = (*Registry)(nil)

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		options:   make(map[string]map[string]any),
	}
}

// Register adds a factory to the registry.
// If a factory with the same capability exists, it is overwritten.
func (r *Registry) Register(capability string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[capability] = f
}

// Configure sets the options passed to the capability's factory.
func (r *Registry) Configure(capability string, options map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options[capability] = options
}

// Capabilities lists the registered capabilities, sorted.
func (r *Registry) Capabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for c := range r.factories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Resolve builds the contributor for capability.
// Returns an error wrapping domain.ErrCapabilityNotFound if nothing is registered.
func (r *Registry) Resolve(ctx context.Context, capability string) (any, error) {
	r.mu.RLock()
	f, ok := r.factories[capability]
	opts := r.options[capability]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCapabilityNotFound, capability)
	}

	c, err := f(ctx, opts)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("factory for %s returned no contributor", capability)
	}
	return c, nil
}

// Decode copies loosely typed options into target, a pointer to a struct with
// mapstructure tags. Unknown keys are rejected.
func Decode(options map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}
