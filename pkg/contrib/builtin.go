package contrib

import (
	"context"
	"errors"

	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

// Capabilities of the built-in contributors.
const (
	CapabilityAPIKey    = "auth.apikey"
	CapabilityStatic    = "resources.static"
	CapabilityRender    = "render.json"
	CapabilityRequestID = "request.id"
)

// RegisterBuiltins makes the built-in contributors resolvable.
func RegisterBuiltins(r *registry.Registry) {
	r.Register(CapabilityAPIKey, func(ctx context.Context, options map[string]any) (ports.Contributor, error) {
		a := &APIKey{}
		if err := registry.Decode(options, a); err != nil {
			return nil, err
		}
		if len(a.Keys) == 0 {
			return nil, errors.New("at least one key is required")
		}
		return a, nil
	})

	r.Register(CapabilityStatic, func(ctx context.Context, options map[string]any) (ports.Contributor, error) {
		var opts StaticOptions
		if err := registry.Decode(options, &opts); err != nil {
			return nil, err
		}
		return NewStatic(opts)
	})

	r.Register(CapabilityRender, func(ctx context.Context, options map[string]any) (ports.Contributor, error) {
		j := &JSONRenderer{}
		if err := registry.Decode(options, j); err != nil {
			return nil, err
		}
		return j, nil
	})

	r.Register(CapabilityRequestID, func(ctx context.Context, options map[string]any) (ports.Contributor, error) {
		return RequestID{}, nil
	})
}
