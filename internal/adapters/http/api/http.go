// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/matchq/internal/app"
	"github.com/okian/matchq/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the matchmaking service.
type Dependencies interface {
	QueueDependencies
	ConfigDependencies
	SchedulerDependencies
	StreamDependencies
	StatsProvider
}

// Server wires HTTP routes for the matchmaking API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	queueHandler     *QueueHandler
	configHandler    *ConfigHandler
	schedulerHandler *SchedulerHandler
	streamHandler    *StreamHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger       logger.Logger
	streamBuffer int
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStreamBuffer sets the per-connection event buffer of /events/stream.
func WithStreamBuffer(size int) Option {
	return func(o *serverOptions) {
		if size > 0 {
			o.streamBuffer = size
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{streamBuffer: defaultStreamBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}

	return &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(deps),
		queueHandler:     NewQueueHandler(deps),
		configHandler:    NewConfigHandler(deps),
		schedulerHandler: NewSchedulerHandler(deps),
		streamHandler:    NewStreamHandler(deps, o.streamBuffer, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/queue", MetricsMiddleware(s.queueHandler.HandleQueue, "queue"))
	mux.HandleFunc("/queue/", MetricsMiddleware(s.queueHandler.HandleParticipant, "queue_participant"))
	mux.HandleFunc("/config", MetricsMiddleware(s.configHandler.HandleConfig, "config"))
	mux.HandleFunc("/scheduler", MetricsMiddleware(s.schedulerHandler.HandleState, "scheduler"))
	mux.HandleFunc("/scheduler/start", MetricsMiddleware(s.schedulerHandler.HandleStart, "scheduler_start"))
	mux.HandleFunc("/scheduler/stop", MetricsMiddleware(s.schedulerHandler.HandleStop, "scheduler_stop"))
	mux.HandleFunc("/events/stream", MetricsMiddleware(s.streamHandler.HandleStream, "events_stream"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service sentinels to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateParticipant):
		writeError(w, http.StatusConflict, "duplicate_participant", err)
	case errors.Is(err, service.ErrNotInQueue):
		writeError(w, http.StatusNotFound, "not_in_queue", err)
	case errors.Is(err, service.ErrInvalidParticipant):
		writeError(w, http.StatusBadRequest, "invalid_participant", err)
	case errors.Is(err, service.ErrInvalidConfiguration):
		writeError(w, http.StatusBadRequest, "invalid_configuration", err)
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "queue_full", err)
	case errors.Is(err, service.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
