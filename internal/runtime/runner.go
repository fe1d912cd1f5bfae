package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/sluice/pkg/domain"
)

const tracerName = "github.com/aretw0/sluice/internal/runtime"

// Runner drives a CommunicationContext through a StepList.
// It keeps no per-request state: everything it needs to resume lives in the
// context's RunState, so a Runner may be shared by any number of requests.
type Runner struct {
	steps  *StepList
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	tracer trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) RunnerOption {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithRunnerLogger sets the structured logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used for step spans.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// NewRunner creates a runner over a finalized list.
func NewRunner(steps *StepList, opts ...RunnerOption) *Runner {
	r := &Runner{
		steps:  steps,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is delivered by AdvanceAsync.
type Result struct {
	Outcome domain.Outcome
	Err     error
}

// AdvanceAsync runs Advance on its own goroutine. The channel receives
// exactly one Result and is then closed.
func (r *Runner) AdvanceAsync(cc *domain.CommunicationContext) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		outcome, err := r.Advance(cc)
		ch <- Result{Outcome: outcome, Err: err}
	}()
	return ch
}

// Advance executes steps from the run's current index until the list is
// exhausted, a step signals RenderNow or Abort, the suspend marker is
// reached, a step faults, or the request context is done.
//
// A run that already finished returns its stored outcome and executes
// nothing. A suspended run resumes at the saved index; no step runs twice.
func (r *Runner) Advance(cc *domain.CommunicationContext) (domain.Outcome, error) {
	if cc.Run == nil {
		cc.Run = domain.NewRunState()
	}
	run := cc.Run
	if run.Status.Terminal() {
		return run.Status.Outcome(), nil
	}

	ctx := cc.Context()
	suspendAt := -1
	if run.SuspendAfter != "" {
		pos, ok := r.steps.Position(run.SuspendAfter)
		if !ok {
			err := &domain.UnknownIdentityError{Identity: run.SuspendAfter, ReferencedBy: "suspend marker"}
			return r.abort(ctx, cc, err), err
		}
		suspendAt = pos + 1
		if suspendAt <= run.Index || suspendAt >= r.steps.Len() {
			// The marker is behind us, or nothing would be left to resume.
			suspendAt = -1
		}
	}

	run.Status = domain.StatusActive
	for run.Index < r.steps.Len() {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("%w at position %d: %w", domain.ErrRunCanceled, run.Index, err)
			return r.abort(ctx, cc, err), err
		}

		s := r.steps.steps[run.Index]
		signal := domain.ContinueSignal
		if s.fn != nil {
			var fault *domain.StepExecutionFault
			signal, fault = r.execute(ctx, cc, s)
			if fault != nil {
				r.logger.Error("step fault", "run_id", cc.ID, "contributor", fault.Contributor, "position", fault.Position, "err", fault.Err)
				if r.hooks.OnFault != nil {
					r.hooks.OnFault(ctx, &domain.StepEvent{
						EventBase:   domain.EventBase{Timestamp: time.Now(), Type: domain.EventFault, RunID: cc.ID},
						Contributor: fault.Contributor,
						Position:    fault.Position,
						Err:         fault,
					})
				}
				return r.abort(ctx, cc, fault), fault
			}
		}
		run.Last = signal

		switch signal {
		case domain.Abort:
			r.logger.Debug("run aborted by step", "run_id", cc.ID, "contributor", s.id)
			return r.abort(ctx, cc, nil), nil

		case domain.RenderNow:
			from := r.steps.RenderFrom()
			if from < 0 {
				run.Index = r.steps.Len()
				continue
			}
			if !run.Rendering && run.Index < from {
				run.Rendering = true
				run.Index = from
				// Suspending inside the skipped section is no longer possible.
				if suspendAt >= 0 && suspendAt <= from {
					suspendAt = -1
				}
				continue
			}
			run.Index++

		default:
			run.Index++
		}

		if run.Index >= r.steps.RenderFrom() && r.steps.RenderFrom() >= 0 {
			run.Rendering = true
		}

		if run.Index == suspendAt {
			run.SuspendAfter = ""
			run.Status = domain.StatusSuspended
			r.logger.Debug("run suspended", "run_id", cc.ID, "index", run.Index)
			if r.hooks.OnSuspend != nil {
				r.hooks.OnSuspend(ctx, &domain.RunEvent{
					EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSuspend, RunID: cc.ID},
					Outcome:   domain.OutcomeSuspended,
					Position:  run.Index,
				})
			}
			return domain.OutcomeSuspended, nil
		}
	}

	run.Status = domain.StatusCompleted
	r.finish(ctx, cc, domain.OutcomeCompleted, nil)
	return domain.OutcomeCompleted, nil
}

func (r *Runner) abort(ctx context.Context, cc *domain.CommunicationContext, err error) domain.Outcome {
	cc.Run.Status = domain.StatusAborted
	r.finish(ctx, cc, domain.OutcomeAborted, err)
	return domain.OutcomeAborted
}

func (r *Runner) finish(ctx context.Context, cc *domain.CommunicationContext, outcome domain.Outcome, err error) {
	if r.hooks.OnFinish != nil {
		r.hooks.OnFinish(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventFinish, RunID: cc.ID},
			Outcome:   outcome,
			Position:  cc.Run.Index,
			Err:       err,
		})
	}
}

// execute invokes one contributor step inside a span, converting errors,
// panics and invalid signals into a StepExecutionFault.
func (r *Runner) execute(ctx context.Context, cc *domain.CommunicationContext, s step) (signal domain.Continuation, fault *domain.StepExecutionFault) {
	pos := cc.Run.Index
	spanCtx, span := r.tracer.Start(ctx, "sluice.step "+string(s.id), trace.WithAttributes(
		attribute.String("sluice.run_id", cc.ID),
		attribute.String("sluice.contributor", string(s.id)),
		attribute.Int("sluice.position", pos),
	))
	cc.SetContext(spanCtx)

	if r.hooks.OnStepEnter != nil {
		r.hooks.OnStepEnter(spanCtx, &domain.StepEvent{
			EventBase:   domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnter, RunID: cc.ID},
			Contributor: s.id,
			Position:    pos,
		})
	}

	start := time.Now()
	defer func() {
		cc.SetContext(ctx)
		if fault != nil {
			span.RecordError(fault.Err)
			span.SetStatus(codes.Error, fault.Err.Error())
		} else {
			span.SetAttributes(attribute.String("sluice.continuation", string(signal)))
		}
		span.End()

		cc.Run.Trace = append(cc.Run.Trace, s.id)
		if r.hooks.OnStepLeave != nil {
			ev := &domain.StepEvent{
				EventBase:    domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepLeave, RunID: cc.ID},
				Contributor:  s.id,
				Position:     pos,
				Continuation: signal,
				Duration:     time.Since(start),
			}
			if fault != nil {
				ev.Err = fault
			}
			r.hooks.OnStepLeave(spanCtx, ev)
		}
	}()

	defer func() {
		if p := recover(); p != nil {
			signal = ""
			fault = &domain.StepExecutionFault{Contributor: s.id, Position: pos, Err: fmt.Errorf("panic: %v", p), Panic: p}
		}
	}()

	signal, err := s.fn(cc)
	if err != nil {
		return "", &domain.StepExecutionFault{Contributor: s.id, Position: pos, Err: err}
	}
	if !signal.Valid() {
		return "", &domain.StepExecutionFault{Contributor: s.id, Position: pos, Err: fmt.Errorf("invalid continuation %q", signal)}
	}
	return signal, nil
}
