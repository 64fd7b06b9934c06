package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/matchq/internal/domain/model"
)

// QueueDependencies defines the queue operations used by the handlers.
type QueueDependencies interface {
	JoinQueue(ctx context.Context, id, displayName string, skillRating int) error
	LeaveQueue(ctx context.Context, id string) error
	Snapshot(ctx context.Context) []model.Participant
	EstimatedWait(ctx context.Context, id string) (time.Duration, error)
}

// QueueHandler handles queue requests.
type QueueHandler struct {
	deps QueueDependencies
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(deps QueueDependencies) *QueueHandler {
	return &QueueHandler{deps: deps}
}

// joinRequest mirrors the OpenAPI schema for POST /queue.
type joinRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SkillRating *int   `json:"skill_rating"`
}

func (j joinRequest) validate() error {
	switch {
	case strings.TrimSpace(j.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(j.DisplayName) == "":
		return errors.New("missing display_name")
	case j.SkillRating == nil:
		return errors.New("missing skill_rating")
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type queueResponse struct {
	Size         int                 `json:"size"`
	Participants []model.Participant `json:"participants"`
}

type estimateResponse struct {
	ID              string `json:"id"`
	EstimatedWaitMS int64  `json:"estimated_wait_ms"`
}

// HandleQueue handles POST /queue (join) and GET /queue (list) requests.
func (h *QueueHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.join(w, r)
	case http.MethodGet:
		participants := h.deps.Snapshot(r.Context())
		writeJSON(w, http.StatusOK, queueResponse{Size: len(participants), Participants: participants})
	default:
		http.NotFound(w, r)
	}
}

func (h *QueueHandler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := h.deps.JoinQueue(r.Context(), req.ID, req.DisplayName, *req.SkillRating); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "queued", ID: req.ID})
}

// HandleParticipant handles DELETE /queue/{id} and GET /queue/{id}/estimate requests.
func (h *QueueHandler) HandleParticipant(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/queue/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodDelete:
		if err := h.deps.LeaveQueue(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ackResponse{Status: "left", ID: id})
	case rest == "estimate" && r.Method == http.MethodGet:
		wait, err := h.deps.EstimatedWait(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, estimateResponse{ID: id, EstimatedWaitMS: wait.Milliseconds()})
	default:
		http.NotFound(w, r)
	}
}
