package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/matchq/pkg/metrics"
)

// runningReporter reports whether the formation loops are active.
type runningReporter interface {
	Running() bool
}

// HealthHandler serves GET /healthz.
type HealthHandler struct {
	metrics http.Handler
	status  runningReporter
}

// NewHealthHandler creates a health handler over the process metrics registry.
func NewHealthHandler(status runningReporter) *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		status:  status,
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// HandleHealth answers with a JSON status when the client accepts JSON and
// with the Prometheus exposition otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Running: h.status.Running()})
		return
	}
	h.metrics.ServeHTTP(w, r)
}
