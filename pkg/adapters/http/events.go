package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
)

// allRuns subscribes to every run.
const allRuns = "*"

// StreamManager fans run lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // run ID (or "*") -> channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers interest in runID, or every run when runID is empty.
// The returned function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(runID string) (<-chan string, func()) {
	if runID == "" {
		runID = allRuns
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

// Broadcast sends msg to the subscribers of runID and to the wildcard ones.
func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{runID, allRuns} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE client buffer full, dropping message", "run_id", runID)
			}
		}
	}
}

// Hooks publishes suspend and finish events.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	publish := func(_ context.Context, e *domain.RunEvent) {
		payload := struct {
			*domain.RunEvent
			Error string `json:"error,omitempty"`
		}{RunEvent: e}
		if e.Err != nil {
			// Only the category reaches clients.
			payload.Error = "run failed"
		}
		b, err := json.Marshal(payload)
		if err != nil {
			sm.logger.Error("encode run event", "err", err)
			return
		}
		sm.Broadcast(e.RunID, string(b))
	}
	return domain.LifecycleHooks{OnSuspend: publish, OnFinish: publish}
}

// ServeHTTP streams events as text/event-stream. The optional run_id query
// parameter narrows the stream to one run.
func (sm *StreamManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := sm.Subscribe(r.URL.Query().Get("run_id"))
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
