// Package config defines service configuration structures and loading hooks.
//
// Queue settings are plain numbers (seconds, milliseconds) so they read
// naturally in YAML and env vars; Queue converts them to the matchmaking
// configuration.
package config

import (
	"fmt"
	"time"

	"github.com/okian/matchq/internal/domain/matchmaking"
	"github.com/okian/matchq/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MinPlayers and MaxPlayers bound the size of a match.
	MinPlayers int `koanf:"min_players"`
	MaxPlayers int `koanf:"max_players"`

	// BaseSkillTolerance is the rating gap allowed at zero wait.
	BaseSkillTolerance float64 `koanf:"base_skill_tolerance"`

	// ToleranceGrowthPerSecond widens the allowed gap for every second the anchor waits.
	ToleranceGrowthPerSecond float64 `koanf:"tolerance_growth_per_second"`

	MaxQueueTimeSeconds           float64 `koanf:"max_queue_time_seconds"`
	MatchFormationIntervalSeconds float64 `koanf:"match_formation_interval_seconds"`
	QueueTickIntervalSeconds      float64 `koanf:"queue_tick_interval_seconds"`

	// QueueCapacity bounds the waiting queue. Zero means unbounded.
	QueueCapacity int `koanf:"queue_capacity"`

	// EventBufferSize is the per-subscriber buffer of the live event stream.
	EventBufferSize int `koanf:"event_buffer_size"`

	// StatusDebounceMS coalesces queue-status notices. Zero disables them.
	StatusDebounceMS int `koanf:"status_debounce_ms"`

	// Autostart starts the scheduler when the process boots.
	Autostart bool `koanf:"autostart"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshSeconds is the gauge updater period.
	MetricsRefreshSeconds float64 `koanf:"metrics_refresh_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	q := matchmaking.DefaultConfig()
	return &Config{
		LogLevel:                      "info",
		LogFormat:                     "text",
		Addr:                          ":9080",
		MinPlayers:                    q.MinPlayersPerMatch,
		MaxPlayers:                    q.MaxPlayersPerMatch,
		BaseSkillTolerance:            q.BaseSkillTolerance,
		ToleranceGrowthPerSecond:      q.ToleranceGrowthRatePerSecond,
		MaxQueueTimeSeconds:           q.MaxQueueTime.Seconds(),
		MatchFormationIntervalSeconds: q.MatchFormationInterval.Seconds(),
		QueueTickIntervalSeconds:      q.QueueTickInterval.Seconds(),
		QueueCapacity:                 0,
		EventBufferSize:               256,
		StatusDebounceMS:              250,
		Autostart:                     true,
		MetricsEnabled:                true,
		MetricsRefreshSeconds:         10,
	}
}

// Queue returns the matchmaking configuration described by c.
func (c *Config) Queue() matchmaking.Config {
	return matchmaking.Config{
		MinPlayersPerMatch:           c.MinPlayers,
		MaxPlayersPerMatch:           c.MaxPlayers,
		BaseSkillTolerance:           c.BaseSkillTolerance,
		ToleranceGrowthRatePerSecond: c.ToleranceGrowthPerSecond,
		MaxQueueTime:                 seconds(c.MaxQueueTimeSeconds),
		MatchFormationInterval:       seconds(c.MatchFormationIntervalSeconds),
		QueueTickInterval:            seconds(c.QueueTickIntervalSeconds),
	}
}

// StatusDebounce returns StatusDebounceMS as a duration.
func (c *Config) StatusDebounce() time.Duration {
	return time.Duration(c.StatusDebounceMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshSeconds as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return seconds(c.MetricsRefreshSeconds)
}

// Validate checks process settings and the queue configuration.
func (c *Config) Validate() error {
	switch {
	case c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON:
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrLogFormat, c.LogFormat)
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueCapacity < 0:
		return fmt.Errorf("%w: queue_capacity must not be negative", ErrInvalidConfig)
	case c.EventBufferSize <= 0:
		return fmt.Errorf("%w: event_buffer_size must be positive", ErrInvalidConfig)
	case c.StatusDebounceMS < 0:
		return fmt.Errorf("%w: status_debounce_ms must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshSeconds <= 0:
		return fmt.Errorf("%w: metrics_refresh_seconds must be positive", ErrInvalidConfig)
	}
	if err := c.Queue().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
