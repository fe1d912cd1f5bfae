// Package http bridges net/http to a sluice pipeline.
package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// DefaultMaxBodyBytes caps how much of a request body the host buffers.
const DefaultMaxBodyBytes = 10 << 20

// InitFunc builds the pipeline on first use.
type InitFunc func(ctx context.Context) (ports.Pipeline, error)

// Host runs every request it sees through a pipeline.
//
// The pipeline is built lazily by the first request. A failed
// initialization is not remembered: the next request tries again.
type Host struct {
	init     InitFunc
	pipeline atomic.Pointer[ports.Pipeline]
	mu       sync.Mutex

	suspendAfter domain.Identity
	maxBody      int64
	logger       *slog.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithSuspendAfter sets where the host pauses to decide whether the pipeline
// handles the request. An empty identity runs every request to the end.
func WithSuspendAfter(id domain.Identity) HostOption {
	return func(h *Host) {
		h.suspendAfter = id
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) HostOption {
	return func(h *Host) {
		h.maxBody = n
	}
}

// WithHostLogger sets the logger.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// NewHost creates a host that builds its pipeline with init.
func NewHost(init InitFunc, opts ...HostOption) *Host {
	h := &Host{
		init:         init,
		suspendAfter: domain.StageURIMatching,
		maxBody:      DefaultMaxBodyBytes,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewStaticHost creates a host around an already built pipeline.
func NewStaticHost(p ports.Pipeline, opts ...HostOption) *Host {
	return NewHost(func(context.Context) (ports.Pipeline, error) { return p, nil }, opts...)
}

// SuspendAfter returns the configured suspend marker.
func (h *Host) SuspendAfter() domain.Identity {
	return h.suspendAfter
}

// Pipeline returns the pipeline, initializing it if needed.
func (h *Host) Pipeline(ctx context.Context) (ports.Pipeline, error) {
	if p := h.pipeline.Load(); p != nil {
		return *p, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if p := h.pipeline.Load(); p != nil {
		return *p, nil
	}

	p, err := h.init(ctx)
	if err != nil {
		return nil, err
	}
	h.pipeline.Store(&p)
	h.logger.Info("pipeline host initialized", "suspend_after", h.suspendAfter)
	return p, nil
}

// Middleware runs each request through the pipeline up to the suspend
// marker. If a contributor took ownership of the request by then, the run is
// resumed and its response written; otherwise the request goes to next
// untouched.
func (h *Host) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.Pipeline(r.Context())
		if err != nil {
			h.logger.Error("pipeline initialization failed", "err", err)
			writeError(w, http.StatusInternalServerError)
			return
		}

		req, err := h.readRequest(w, r)
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge)
			return
		}

		cc := p.NewContext(r.Context(), req)
		cc.Run.SuspendAfter = h.suspendAfter

		outcome, err := p.Advance(cc)
		if outcome == domain.OutcomeSuspended {
			if !cc.Data.Handled() {
				h.logger.Debug("request not handled by pipeline", "run_id", cc.ID, "path", req.Path)
				r.Body = io.NopCloser(bytes.NewReader(req.Body))
				next.ServeHTTP(w, r)
				return
			}
			outcome, err = p.Advance(cc)
		}

		switch outcome {
		case domain.OutcomeCompleted:
			if !cc.Data.Handled() && len(cc.Response.Body) == 0 && cc.Response.StatusCode == 0 {
				next.ServeHTTP(w, r)
				return
			}
			writeResponse(w, cc)
		case domain.OutcomeSuspended:
			// A second suspension cannot happen: the marker is cleared once hit.
			h.logger.Error("run suspended twice", "run_id", cc.ID)
			writeError(w, http.StatusInternalServerError)
		default:
			if errors.Is(err, domain.ErrRunCanceled) {
				h.logger.Debug("client went away", "run_id", cc.ID)
				return
			}
			h.logger.Error("run aborted", "run_id", cc.ID, "err", err)
			if len(cc.Response.Body) > 0 && err == nil {
				// A contributor aborted after composing its own response.
				writeResponse(w, cc)
				return
			}
			writeError(w, http.StatusInternalServerError)
		}
	})
}

// ServeHTTP makes the host a terminal handler: requests the pipeline does
// not handle get 404.
func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound)
	})).ServeHTTP(w, r)
}

func (h *Host) readRequest(w http.ResponseWriter, r *http.Request) (*domain.Request, error) {
	req := &domain.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		Header:     r.Header.Clone(),
		RemoteAddr: r.RemoteAddr,
	}
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

func writeResponse(w http.ResponseWriter, cc *domain.CommunicationContext) {
	resp := cc.Response
	for k, vals := range resp.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	status := resp.StatusCode
	if status == 0 && cc.Data.Result != nil {
		status = cc.Data.Result.StatusCode
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

func writeError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}
