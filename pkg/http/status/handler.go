// Package status renders a JSON snapshot of the experiment currently running.
package status

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Snapshot is the payload returned by the handler.
type Snapshot struct {
	Experiment string `json:"experiment"`
	Backend    string `json:"backend"`
	Running    bool   `json:"running"`
	Records    int    `json:"records"`
	Missed     uint64 `json:"missedDeadlines"`
}

// Source exposes the live counters the handler reads. The recorder interface
// already provides both methods.
type Source interface {
	Len() int
	MissedDeadlines() uint64
}

// Handler serves the experiment status as JSON.
type Handler struct {
	mu         sync.RWMutex
	experiment string
	backend    string
	running    bool
	source     Source
}

// NewHandler constructs a handler with no active run.
func NewHandler() *Handler {
	return new(Handler)
}

// SetRun points the handler at a starting run.
func (h *Handler) SetRun(experiment, backend string, source Source) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.experiment = experiment
	h.backend = backend
	h.source = source
	h.running = true
}

// Finish marks the current run as completed.
func (h *Handler) Finish() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.running = false
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()

	snapshot := Snapshot{
		Experiment: h.experiment,
		Backend:    h.backend,
		Running:    h.running,
	}

	if h.source != nil {
		snapshot.Records = h.source.Len()
		snapshot.Missed = h.source.MissedDeadlines()
	}

	h.mu.RUnlock()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		http.Error(writer, "marshal status", http.StatusInternalServerError)

		return
	}

	writer.Header().Set("Content-Type", "application/json")
	_, _ = writer.Write(payload)
}
