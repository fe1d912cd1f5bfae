package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/session"
)

// AdminOptions configures the admin API.
type AdminOptions struct {
	Host    *Host
	Manager *session.Manager
	// Streams, when set, serves GET /events.
	Streams *StreamManager
	Logger  *slog.Logger
}

type admin struct {
	AdminOptions
}

// NewAdminHandler returns the admin API router. Mount it under a prefix such
// as /_sluice.
func NewAdminHandler(opts AdminOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	a := &admin{opts}

	r := chi.NewRouter()
	r.Get("/health", a.getHealth)
	r.Get("/info", a.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(RawSpec())
	})
	r.Get("/order", a.getOrder)
	if opts.Streams != nil {
		r.Get("/events", opts.Streams.ServeHTTP)
	}
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", a.listRuns)
		r.Post("/", a.startRun)
		r.Get("/{id}", a.getRun)
		r.Delete("/{id}", a.deleteRun)
		r.Post("/{id}/resume", a.resumeRun)
	})
	return r
}

type startRunRequest struct {
	Method       string      `json:"method"`
	Path         string      `json:"path"`
	Query        url.Values  `json:"query"`
	Header       http.Header `json:"header"`
	Body         string      `json:"body"`
	SuspendAfter string      `json:"suspend_after"`
}

type resumeRequest struct {
	SuspendAfter string `json:"suspend_after"`
}

type responseView struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   string      `json:"body,omitempty"`
}

type runView struct {
	ID       string            `json:"id"`
	Status   domain.RunStatus  `json:"status"`
	Outcome  domain.Outcome    `json:"outcome"`
	Position int               `json:"position"`
	Trace    []domain.Identity `json:"trace,omitempty"`
	Response *responseView     `json:"response,omitempty"`
}

func newRunView(cc *domain.CommunicationContext, outcome domain.Outcome) runView {
	v := runView{
		ID:       cc.ID,
		Status:   cc.Run.Status,
		Outcome:  outcome,
		Position: cc.Run.Index,
		Trace:    cc.Run.Trace,
	}
	if outcome == domain.OutcomeCompleted {
		v.Response = &responseView{
			Status: cc.Response.StatusCode,
			Header: cc.Response.Header,
			Body:   string(cc.Response.Body),
		}
	}
	return v
}

func (a *admin) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *admin) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := Spec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":           "sluice",
		"version":       strings.TrimSpace(sluice.Version),
		"api_version":   apiVersion,
		"suspend_after": string(a.Host.SuspendAfter()),
	})
}

func (a *admin) getOrder(w http.ResponseWriter, r *http.Request) {
	p, err := a.Host.Pipeline(r.Context())
	if err != nil {
		a.fail(w, "pipeline initialization failed", err)
		return
	}
	steps, err := p.Steps()
	if err != nil {
		a.fail(w, "pipeline order unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (a *admin) listRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := a.Manager.List(r.Context())
	if err != nil {
		a.fail(w, "list runs failed", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (a *admin) startRun(w http.ResponseWriter, r *http.Request) {
	var body startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "a JSON body with a path is required"})
		return
	}

	p, err := a.Host.Pipeline(r.Context())
	if err != nil {
		a.fail(w, "pipeline initialization failed", err)
		return
	}

	method := body.Method
	if method == "" {
		method = http.MethodGet
	}
	cc := p.NewContext(r.Context(), &domain.Request{
		Method:     method,
		Path:       body.Path,
		Query:      body.Query,
		Header:     body.Header,
		Body:       []byte(body.Body),
		RemoteAddr: r.RemoteAddr,
	})
	cc.Run.SuspendAfter = a.Host.SuspendAfter()
	if body.SuspendAfter != "" {
		cc.Run.SuspendAfter = domain.Identity(body.SuspendAfter)
	}

	outcome, err := p.Advance(cc)
	if err != nil {
		a.Logger.Warn("admin run failed", "run_id", cc.ID, "err", err)
	}
	if outcome != domain.OutcomeSuspended {
		writeJSON(w, http.StatusOK, newRunView(cc, outcome))
		return
	}

	if err := a.Manager.Park(r.Context(), cc); err != nil {
		a.fail(w, "park run failed", err)
		return
	}
	writeJSON(w, http.StatusAccepted, newRunView(cc, outcome))
}

func (a *admin) getRun(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Manager.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.notFoundOrFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *admin) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := a.Manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, "delete run failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *admin) resumeRun(w http.ResponseWriter, r *http.Request) {
	var body resumeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
			return
		}
	}

	p, err := a.Host.Pipeline(r.Context())
	if err != nil {
		a.fail(w, "pipeline initialization failed", err)
		return
	}

	cc, outcome, err := a.Manager.Resume(r.Context(), chi.URLParam(r, "id"), func(cc *domain.CommunicationContext) (domain.Outcome, error) {
		cc.Run.SuspendAfter = domain.Identity(body.SuspendAfter)
		return p.Advance(cc)
	})
	if errors.Is(err, domain.ErrRunNotFound) {
		a.notFoundOrFail(w, err)
		return
	}
	if cc == nil {
		a.fail(w, "resume run failed", err)
		return
	}
	if err != nil {
		a.Logger.Warn("resumed run failed", "run_id", cc.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, newRunView(cc, outcome))
}

func (a *admin) notFoundOrFail(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "run not found"})
		return
	}
	a.fail(w, "run store failed", err)
}

func (a *admin) fail(w http.ResponseWriter, msg string, err error) {
	a.Logger.Error(msg, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
