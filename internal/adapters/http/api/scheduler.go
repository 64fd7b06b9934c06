package api

import (
	"context"
	"net/http"
)

// SchedulerDependencies defines the scheduler controls used by the handler.
type SchedulerDependencies interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// SchedulerHandler handles scheduler requests.
type SchedulerHandler struct {
	deps SchedulerDependencies
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(deps SchedulerDependencies) *SchedulerHandler {
	return &SchedulerHandler{deps: deps}
}

type schedulerResponse struct {
	Running bool `json:"running"`
}

// HandleState handles GET /scheduler requests.
func (h *SchedulerHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, schedulerResponse{Running: h.deps.Running()})
}

// HandleStart handles POST /scheduler/start requests.
func (h *SchedulerHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Start(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedulerResponse{Running: h.deps.Running()})
}

// HandleStop handles POST /scheduler/stop requests.
func (h *SchedulerHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.deps.Stop()
	writeJSON(w, http.StatusOK, schedulerResponse{Running: h.deps.Running()})
}
