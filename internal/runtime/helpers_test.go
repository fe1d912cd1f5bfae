package runtime_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/sluice/pkg/domain"
)

// countingHandler counts "pipeline finalized" records.
type countingHandler struct {
	hits *atomic.Int32
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countingHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "pipeline finalized" {
		h.hits.Add(1)
	}
	return nil
}
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countingHandler) WithGroup(string) slog.Handler      { return h }

func countingLogger(hits *atomic.Int32) *slog.Logger {
	return slog.New(countingHandler{hits: hits})
}

// recorder hands out steps that log their execution.
type recorder struct {
	mu    sync.Mutex
	calls []domain.Identity
}

func (r *recorder) step(id domain.Identity, signal domain.Continuation) domain.StepFunc {
	return func(cc *domain.CommunicationContext) (domain.Continuation, error) {
		r.mu.Lock()
		r.calls = append(r.calls, id)
		r.mu.Unlock()
		return signal, nil
	}
}

func (r *recorder) seen() []domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Identity(nil), r.calls...)
}
