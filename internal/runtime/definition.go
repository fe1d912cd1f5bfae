package runtime

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/sluice/internal/ordering"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// Definition collects contributor steps and their ordering constraints, and
// finalizes them once into a StepList.
type Definition struct {
	mu          sync.Mutex
	graph       *ordering.Graph[domain.Identity]
	stages      []domain.Identity
	renderAfter domain.Identity
	renderSet   bool
	steps       map[domain.Identity]domain.StepFunc
	refs        map[domain.Identity]domain.Identity // first referrer of every constraint target
	errs        []error
	finalized   bool
	logger      *slog.Logger

	once sync.Once
	list *StepList
	err  error
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// WithStages replaces the stage markers of the pipeline. Stages are chained
// in the given order.
func WithStages(stages ...domain.Identity) DefinitionOption {
	return func(d *Definition) {
		d.stages = append([]domain.Identity(nil), stages...)
	}
}

// WithRenderAfter sets the stage a RenderNow signal jumps past.
// An empty identity disables the render section.
func WithRenderAfter(stage domain.Identity) DefinitionOption {
	return func(d *Definition) {
		d.renderAfter = stage
		d.renderSet = true
	}
}

// WithDefinitionLogger sets the logger used to report the finalized order.
func WithDefinitionLogger(logger *slog.Logger) DefinitionOption {
	return func(d *Definition) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDefinition returns an empty definition anchored on the well-known stages.
func NewDefinition(opts ...DefinitionOption) *Definition {
	d := &Definition{
		graph:       ordering.New[domain.Identity](),
		stages:      domain.KnownStages(),
		renderAfter: domain.StageOperationExecution,
		steps:       make(map[domain.Identity]domain.StepFunc),
		refs:        make(map[domain.Identity]domain.Identity),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if !d.renderSet && !d.isStage(d.renderAfter) {
		d.renderAfter = ""
	}
	// A stage marker means its phase is complete: it waits for every ready
	// contributor.
	for _, s := range d.stages {
		d.graph.Defer(s)
	}
	return d
}

// Stages returns the configured stage markers.
func (d *Definition) Stages() []domain.Identity {
	return append([]domain.Identity(nil), d.stages...)
}

// Use registers a step under id. Registration after Finalize is rejected with
// an error wrapping domain.ErrPipelineFinalized, reported by the handle's Err.
func (d *Definition) Use(id domain.Identity, fn domain.StepFunc) ports.Order {
	d.mu.Lock()
	defer d.mu.Unlock()

	o := &Order{def: d, id: id}
	switch {
	case d.finalized:
		o.err = fmt.Errorf("register %q: %w", id, domain.ErrPipelineFinalized)
		return o
	case id == "":
		o.err = errors.New("register: empty identity")
	case fn == nil:
		o.err = fmt.Errorf("register %q: nil step function", id)
	case d.isStage(id):
		o.err = fmt.Errorf("register %q: identity is a stage", id)
	case d.steps[id] != nil:
		o.err = &domain.DuplicateContributorError{Identity: id}
	}
	if o.err != nil {
		d.errs = append(d.errs, o.err)
		return o
	}

	d.steps[id] = fn
	d.graph.AddNode(id)
	return o
}

func (d *Definition) isStage(id domain.Identity) bool {
	for _, s := range d.stages {
		if s == id {
			return true
		}
	}
	return false
}

// previousStage returns the stage configured right before stage.
func (d *Definition) previousStage(stage domain.Identity) (domain.Identity, bool) {
	for i, s := range d.stages {
		if s == stage && i > 0 {
			return d.stages[i-1], true
		}
	}
	return "", false
}

func (d *Definition) constrain(o *Order, from, to domain.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finalized {
		if o.err == nil {
			o.err = fmt.Errorf("constrain %q: %w", o.id, domain.ErrPipelineFinalized)
		}
		return
	}
	if o.err != nil {
		return
	}
	other := to
	if other == o.id {
		other = from
	}
	if _, seen := d.refs[other]; !seen {
		d.refs[other] = o.id
	}
	d.graph.AddConstraint(from, to)
}

// Finalize computes the step list exactly once. Concurrent callers wait for
// the first computation and all observe the same result.
func (d *Definition) Finalize() (*StepList, error) {
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.finalized = true
		d.list, d.err = d.build()
		if d.err != nil {
			d.logger.Error("pipeline finalization failed", "err", d.err)
			return
		}
		d.logger.Info("pipeline finalized", "steps", d.list.Len(), "order", d.list.Identities())
	})
	return d.list, d.err
}

// Finalized reports whether Finalize has run.
func (d *Definition) Finalized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finalized
}

func (d *Definition) build() (*StepList, error) {
	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}

	for i, s := range d.stages {
		d.graph.Defer(s)
		if i > 0 {
			d.graph.AddConstraint(d.stages[i-1], s)
		}
	}
	d.anchor()

	var unknown []error
	for _, n := range d.graph.Nodes() {
		if d.steps[n] == nil && !d.isStage(n) {
			unknown = append(unknown, &domain.UnknownIdentityError{Identity: n, ReferencedBy: d.refs[n]})
		}
	}
	if len(unknown) > 0 {
		return nil, errors.Join(unknown...)
	}

	order, err := d.graph.Finalize()
	if err != nil {
		var cycle *ordering.CycleError[domain.Identity]
		if errors.As(err, &cycle) {
			return nil, &domain.CyclicOrderingError{Identities: cycle.Nodes}
		}
		return nil, err
	}

	if d.renderAfter != "" && !d.isStage(d.renderAfter) && d.steps[d.renderAfter] == nil {
		return nil, &domain.UnknownIdentityError{Identity: d.renderAfter}
	}
	return newStepList(order, d.steps, d.renderAfter), nil
}

// anchor keeps every contributor between the first and the last stage unless
// it explicitly declared otherwise.
func (d *Definition) anchor() {
	if len(d.stages) == 0 {
		return
	}
	first, last := d.stages[0], d.stages[len(d.stages)-1]
	for _, n := range d.graph.Nodes() {
		if d.steps[n] == nil {
			continue
		}
		if !d.graph.HasEdge(n, first) {
			d.graph.AddConstraint(first, n)
		}
		if last != first && !d.graph.HasEdge(last, n) {
			d.graph.AddConstraint(n, last)
		}
	}
}

// Order is the fluent ordering handle returned by Definition.Use.
type Order struct {
	def *Definition
	id  domain.Identity
	err error
}

// Before places the step ahead of each identity.
func (o *Order) Before(ids ...domain.Identity) ports.Order {
	for _, id := range ids {
		o.def.constrain(o, o.id, id)
	}
	return o
}

// After places the step behind each identity.
func (o *Order) After(ids ...domain.Identity) ports.Order {
	for _, id := range ids {
		o.def.constrain(o, id, o.id)
	}
	return o
}

// During places the step before stage and after the stage preceding it.
func (o *Order) During(stage domain.Identity) ports.Order {
	if prev, ok := o.def.previousStage(stage); ok {
		o.After(prev)
	}
	return o.Before(stage)
}

// Err returns the registration error, if any.
func (o *Order) Err() error {
	return o.err
}
