package dsl

// Builder assembles a Manifest in Go.
type Builder struct {
	manifest Manifest
}

// New creates a builder for a named pipeline.
func New(name string) *Builder {
	return &Builder{manifest: Manifest{Name: name}}
}

// Stages replaces the stage markers.
func (b *Builder) Stages(stages ...string) *Builder {
	b.manifest.Stages = stages
	return b
}

// RenderAfter sets the stage RenderNow jumps past.
func (b *Builder) RenderAfter(stage string) *Builder {
	b.manifest.RenderAfter = stage
	return b
}

// Add appends a capability. Adding the same capability again returns the
// existing entry.
func (b *Builder) Add(capability string) *EntryBuilder {
	for i := range b.manifest.Contributors {
		if b.manifest.Contributors[i].Capability == capability {
			return &EntryBuilder{builder: b, index: i}
		}
	}
	b.manifest.Contributors = append(b.manifest.Contributors, Entry{Capability: capability})
	return &EntryBuilder{builder: b, index: len(b.manifest.Contributors) - 1}
}

// Build validates and returns a copy of the manifest.
func (b *Builder) Build() (*Manifest, error) {
	m := b.manifest
	m.Contributors = append([]Entry(nil), b.manifest.Contributors...)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EntryBuilder configures one entry fluently.
type EntryBuilder struct {
	builder *Builder
	index   int
}

func (e *EntryBuilder) entry() *Entry {
	return &e.builder.manifest.Contributors[e.index]
}

// Option sets one factory option.
func (e *EntryBuilder) Option(key string, value any) *EntryBuilder {
	en := e.entry()
	if en.Options == nil {
		en.Options = make(map[string]any)
	}
	en.Options[key] = value
	return e
}

func (e *EntryBuilder) Before(ids ...string) *EntryBuilder {
	e.entry().Before = append(e.entry().Before, ids...)
	return e
}

func (e *EntryBuilder) After(ids ...string) *EntryBuilder {
	e.entry().After = append(e.entry().After, ids...)
	return e
}

func (e *EntryBuilder) During(stage string) *EntryBuilder {
	e.entry().During = stage
	return e
}

// Add starts the next entry.
func (e *EntryBuilder) Add(capability string) *EntryBuilder {
	return e.builder.Add(capability)
}

// Build finishes the manifest.
func (e *EntryBuilder) Build() (*Manifest, error) {
	return e.builder.Build()
}
