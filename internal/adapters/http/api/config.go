package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/matchq/internal/domain/matchmaking"
)

// ConfigDependencies defines the configuration operations used by the handler.
type ConfigDependencies interface {
	Config() matchmaking.Config
	Configure(ctx context.Context, cfg matchmaking.Config) error
}

// ConfigHandler handles queue configuration requests.
type ConfigHandler struct {
	deps ConfigDependencies
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(deps ConfigDependencies) *ConfigHandler {
	return &ConfigHandler{deps: deps}
}

// configPayload is the wire shape of the queue configuration. Durations are seconds.
type configPayload struct {
	MinPlayersPerMatch            int     `json:"min_players_per_match"`
	MaxPlayersPerMatch            int     `json:"max_players_per_match"`
	BaseSkillTolerance            float64 `json:"base_skill_tolerance"`
	ToleranceGrowthRatePerSecond  float64 `json:"tolerance_growth_rate_per_second"`
	MaxQueueTimeSeconds           float64 `json:"max_queue_time_seconds"`
	MatchFormationIntervalSeconds float64 `json:"match_formation_interval_seconds"`
	QueueTickIntervalSeconds      float64 `json:"queue_tick_interval_seconds"`
}

func payloadFrom(c matchmaking.Config) configPayload {
	return configPayload{
		MinPlayersPerMatch:            c.MinPlayersPerMatch,
		MaxPlayersPerMatch:            c.MaxPlayersPerMatch,
		BaseSkillTolerance:            c.BaseSkillTolerance,
		ToleranceGrowthRatePerSecond:  c.ToleranceGrowthRatePerSecond,
		MaxQueueTimeSeconds:           c.MaxQueueTime.Seconds(),
		MatchFormationIntervalSeconds: c.MatchFormationInterval.Seconds(),
		QueueTickIntervalSeconds:      c.QueueTickInterval.Seconds(),
	}
}

func (p configPayload) config() matchmaking.Config {
	return matchmaking.Config{
		MinPlayersPerMatch:           p.MinPlayersPerMatch,
		MaxPlayersPerMatch:           p.MaxPlayersPerMatch,
		BaseSkillTolerance:           p.BaseSkillTolerance,
		ToleranceGrowthRatePerSecond: p.ToleranceGrowthRatePerSecond,
		MaxQueueTime:                 seconds(p.MaxQueueTimeSeconds),
		MatchFormationInterval:       seconds(p.MatchFormationIntervalSeconds),
		QueueTickInterval:            seconds(p.QueueTickIntervalSeconds),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// HandleConfig handles GET /config and PUT /config requests. A PUT body is
// applied over the current configuration, so omitted fields keep their values.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, payloadFrom(h.deps.Config()))
	case http.MethodPut:
		req := payloadFrom(h.deps.Config())
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		if err := h.deps.Configure(r.Context(), req.config()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payloadFrom(h.deps.Config()))
	default:
		http.NotFound(w, r)
	}
}
