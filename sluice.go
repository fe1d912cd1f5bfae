package sluice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/sluice/internal/runtime"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// Engine is the high-level entry point for the sluice library.
// It owns the pipeline definition and the process-wide runner built from it.
type Engine struct {
	definition *runtime.Definition
	runner     atomic.Pointer[runtime.Runner]
	defOpts    []runtime.DefinitionOption
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	tracer     trace.Tracer
	closers    []func() error
	closeOnce  sync.Once
	closeErr   error
	closed     atomic.Bool
	Name       string
}

var (
	_ ports.Builder  = (*Engine)(nil)
	_ ports.Pipeline = (*Engine)(nil)
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStages replaces the well-known stage markers.
func WithStages(stages ...domain.Identity) Option {
	return func(e *Engine) {
		e.defOpts = append(e.defOpts, runtime.WithStages(stages...))
	}
}

// WithRenderAfter sets the stage a RenderNow signal jumps past
// (default: operation_execution).
func WithRenderAfter(stage domain.Identity) Option {
	return func(e *Engine) {
		e.defOpts = append(e.defOpts, runtime.WithRenderAfter(stage))
	}
}

// WithTracer sets the OpenTelemetry tracer used for step spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithCloser registers a function run once by Close, in reverse order of
// registration.
func WithCloser(fn func() error) Option {
	return func(e *Engine) {
		e.closers = append(e.closers, fn)
	}
}

// WithName labels the engine in logs.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes an engine. This is the explicit start of the pipeline's
// process-wide state; Close tears it down.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("pipeline", eng.Name)
	}

	defOpts := append([]runtime.DefinitionOption{runtime.WithDefinitionLogger(eng.logger)}, eng.defOpts...)
	eng.definition = runtime.NewDefinition(defOpts...)
	for _, s := range eng.definition.Stages() {
		if s == "" {
			return nil, fmt.Errorf("empty stage identity")
		}
	}
	return eng, nil
}

// Use registers a step function. It is only valid before the first request;
// afterwards the returned handle reports domain.ErrPipelineFinalized.
func (e *Engine) Use(id domain.Identity, fn domain.StepFunc) ports.Order {
	return e.definition.Use(id, fn)
}

// recordingBuilder remembers every handle a contributor obtained so their
// errors can be checked once Initialize returns.
type recordingBuilder struct {
	b      ports.Builder
	orders []ports.Order
}

func (r *recordingBuilder) Use(id domain.Identity, fn domain.StepFunc) ports.Order {
	o := r.b.Use(id, fn)
	r.orders = append(r.orders, o)
	return o
}

// Register initializes contributors against the engine and reports every
// registration they got wrong.
func (e *Engine) Register(contributors ...ports.Contributor) error {
	var errs []error
	for _, c := range contributors {
		rb := &recordingBuilder{b: e.definition}
		c.Initialize(rb)
		for _, o := range rb.orders {
			if err := o.Err(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Resolve builds one contributor per capability through resolver and
// registers it. A resolved plain step function is registered under the
// capability name. Any failure stops resolution: a contributor is never
// silently skipped.
func (e *Engine) Resolve(ctx context.Context, resolver ports.Resolver, capabilities ...string) error {
	for _, capability := range capabilities {
		v, err := resolver.Resolve(ctx, capability)
		if err != nil {
			return &domain.ContributorConstructionError{Capability: capability, Err: err}
		}

		var c ports.Contributor
		switch t := v.(type) {
		case ports.Contributor:
			c = t
		case domain.StepFunc:
			c = stepContributor(capability, t)
		case func(*domain.CommunicationContext) (domain.Continuation, error):
			c = stepContributor(capability, t)
		default:
			return &domain.ContributorConstructionError{
				Capability: capability,
				Err:        fmt.Errorf("resolved %T is neither a contributor nor a step function", v),
			}
		}

		if err := e.Register(c); err != nil {
			return fmt.Errorf("register %q: %w", capability, err)
		}
		e.logger.Debug("contributor resolved", "capability", capability)
	}
	return nil
}

func stepContributor(capability string, fn domain.StepFunc) ports.Contributor {
	return ports.ContributorFunc(func(b ports.Builder) {
		b.Use(domain.Identity(capability), fn)
	})
}

// Finalize computes the ordered step list. It runs at most once; the first
// request triggers it implicitly.
func (e *Engine) Finalize() (*runtime.StepList, error) {
	_, err := e.pipeline()
	if err != nil {
		return nil, err
	}
	return e.definition.Finalize()
}

func (e *Engine) pipeline() (*runtime.Runner, error) {
	if r := e.runner.Load(); r != nil {
		return r, nil
	}
	list, err := e.definition.Finalize()
	if err != nil {
		return nil, err
	}
	e.runner.CompareAndSwap(nil, runtime.NewRunner(list,
		runtime.WithHooks(e.hooks),
		runtime.WithRunnerLogger(e.logger),
		runtime.WithTracer(e.tracer),
	))
	return e.runner.Load(), nil
}

// Steps returns the finalized order, stage markers included.
func (e *Engine) Steps() ([]domain.StepInfo, error) {
	list, err := e.Finalize()
	if err != nil {
		return nil, err
	}
	return list.Steps(), nil
}

// NewContext creates the communication context for one request.
func (e *Engine) NewContext(ctx context.Context, req *domain.Request) *domain.CommunicationContext {
	return domain.NewCommunicationContext(ctx, uuid.NewString(), req)
}

// Advance runs cc forward. See runtime.Runner.Advance for the semantics.
func (e *Engine) Advance(cc *domain.CommunicationContext) (domain.Outcome, error) {
	if e.closed.Load() {
		return domain.OutcomeAborted, domain.ErrEngineClosed
	}
	r, err := e.pipeline()
	if err != nil {
		return domain.OutcomeAborted, err
	}
	return r.Advance(cc)
}

// AdvanceAsync runs Advance on its own goroutine.
func (e *Engine) AdvanceAsync(cc *domain.CommunicationContext) <-chan runtime.Result {
	if e.closed.Load() {
		ch := make(chan runtime.Result, 1)
		ch <- runtime.Result{Outcome: domain.OutcomeAborted, Err: domain.ErrEngineClosed}
		close(ch)
		return ch
	}
	r, err := e.pipeline()
	if err != nil {
		ch := make(chan runtime.Result, 1)
		ch <- runtime.Result{Outcome: domain.OutcomeAborted, Err: err}
		close(ch)
		return ch
	}
	return r.AdvanceAsync(cc)
}

// Close shuts the engine down. Later calls to Advance fail with
// domain.ErrEngineClosed. Close is idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		var errs []error
		for i := len(e.closers) - 1; i >= 0; i-- {
			if err := e.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		e.closeErr = errors.Join(errs...)
		e.logger.Info("engine closed")
	})
	return e.closeErr
}
