package dsl

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

// Manifest is the declarative form of a pipeline.
type Manifest struct {
	Name         string   `yaml:"name,omitempty"`
	Stages       []string `yaml:"stages,omitempty"`
	RenderAfter  string   `yaml:"render_after,omitempty"`
	Contributors []Entry  `yaml:"contributors,omitempty"`
}

// Entry selects one capability.
type Entry struct {
	Capability string         `yaml:"capability"`
	Options    map[string]any `yaml:"options,omitempty"`

	// Before, After and During add constraints to every step the
	// contributor registers.
	Before []string `yaml:"before,omitempty"`
	After  []string `yaml:"after,omitempty"`
	During string   `yaml:"during,omitempty"`
}

// Parse decodes a YAML manifest.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// LoadFile reads and parses a manifest file.
func LoadFile(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Merge returns m with other layered on top: scalar fields set in other win
// and contributors are appended.
func (m Manifest) Merge(other *Manifest) Manifest {
	if other == nil {
		return m
	}
	out := m
	if other.Name != "" {
		out.Name = other.Name
	}
	if len(other.Stages) > 0 {
		out.Stages = other.Stages
	}
	if other.RenderAfter != "" {
		out.RenderAfter = other.RenderAfter
	}
	out.Contributors = append(append([]Entry(nil), m.Contributors...), other.Contributors...)
	return out
}

// Validate reports structural problems. Unknown capabilities are only
// detected when resolving.
func (m Manifest) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(m.Contributors))
	for i, e := range m.Contributors {
		if e.Capability == "" {
			errs = append(errs, fmt.Errorf("contributors[%d]: capability is required", i))
			continue
		}
		if seen[e.Capability] {
			errs = append(errs, fmt.Errorf("contributors[%d]: capability %q listed twice", i, e.Capability))
		}
		seen[e.Capability] = true
	}
	for i, s := range m.Stages {
		if s == "" {
			errs = append(errs, fmt.Errorf("stages[%d]: empty stage", i))
		}
	}
	return errors.Join(errs...)
}

// Capabilities lists the capabilities in manifest order.
func (m Manifest) Capabilities() []string {
	out := make([]string, len(m.Contributors))
	for i, e := range m.Contributors {
		out[i] = e.Capability
	}
	return out
}

// EngineOptions translates the pipeline-level settings.
func (m Manifest) EngineOptions() []sluice.Option {
	var opts []sluice.Option
	if m.Name != "" {
		opts = append(opts, sluice.WithName(m.Name))
	}
	if len(m.Stages) > 0 {
		stages := make([]domain.Identity, len(m.Stages))
		for i, s := range m.Stages {
			stages[i] = domain.Identity(s)
		}
		opts = append(opts, sluice.WithStages(stages...))
	}
	if m.RenderAfter != "" {
		opts = append(opts, sluice.WithRenderAfter(domain.Identity(m.RenderAfter)))
	}
	return opts
}

// Resolver returns a resolver that configures each capability from the
// manifest and applies the entry's extra constraints to what reg builds.
func (m Manifest) Resolver(reg *registry.Registry) ports.Resolver {
	entries := make(map[string]Entry, len(m.Contributors))
	for _, e := range m.Contributors {
		entries[e.Capability] = e
		if e.Options != nil {
			reg.Configure(e.Capability, e.Options)
		}
	}
	return &manifestResolver{reg: reg, entries: entries}
}

// Apply resolves every contributor of the manifest and registers it on eng.
func (m Manifest) Apply(ctx context.Context, eng *sluice.Engine, reg *registry.Registry) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return eng.Resolve(ctx, m.Resolver(reg), m.Capabilities()...)
}

type manifestResolver struct {
	reg     *registry.Registry
	entries map[string]Entry
}

func (r *manifestResolver) Resolve(ctx context.Context, capability string) (any, error) {
	v, err := r.reg.Resolve(ctx, capability)
	if err != nil {
		return nil, err
	}
	e := r.entries[capability]
	if len(e.Before) == 0 && len(e.After) == 0 && e.During == "" {
		return v, nil
	}

	c, ok := v.(ports.Contributor)
	if !ok {
		return nil, fmt.Errorf("resolved %T is not a contributor", v)
	}
	return ports.ContributorFunc(func(b ports.Builder) {
		c.Initialize(&constrainedBuilder{next: b, entry: e})
	}), nil
}

// constrainedBuilder adds an entry's constraints to every Use.
type constrainedBuilder struct {
	next  ports.Builder
	entry Entry
}

func (b *constrainedBuilder) Use(id domain.Identity, fn domain.StepFunc) ports.Order {
	o := b.next.Use(id, fn)
	if b.entry.During != "" {
		o = o.During(domain.Identity(b.entry.During))
	}
	if len(b.entry.Before) > 0 {
		o = o.Before(identities(b.entry.Before)...)
	}
	if len(b.entry.After) > 0 {
		o = o.After(identities(b.entry.After)...)
	}
	return o
}

func identities(ss []string) []domain.Identity {
	out := make([]domain.Identity, len(ss))
	for i, s := range ss {
		out[i] = domain.Identity(s)
	}
	return out
}
