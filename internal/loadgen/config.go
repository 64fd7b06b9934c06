// Package loadgen drives a running matchq service with synthetic participants.
package loadgen

import (
	"fmt"
	"time"
)

// Default run configuration constants.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultPlayers      = 1000
	DefaultRatingMean   = 1500
	DefaultRatingStdDev = 300
	DefaultWorkers      = 16
	DefaultTimeout      = 10 * time.Second
	DefaultWatchTimeout = 3 * time.Minute
	DefaultPollInterval = 500 * time.Millisecond
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Players       int           // Number of participants to join
	LeaveFraction float64       // Share of joined participants that leave voluntarily
	RatingMean    float64       // Mean of the skill rating distribution
	RatingStdDev  float64       // Standard deviation of the skill rating distribution
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	WatchTimeout  time.Duration // How long to wait for the queue to drain
	PollInterval  time.Duration // Delay between queue polls
	Seed          int64         // Rating generator seed; zero picks one from the clock
	Verbose       bool          // Log every rejected request
}

// DefaultConfig returns a configuration pointed at a local service.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		Players:      DefaultPlayers,
		RatingMean:   DefaultRatingMean,
		RatingStdDev: DefaultRatingStdDev,
		Workers:      DefaultWorkers,
		Timeout:      DefaultTimeout,
		WatchTimeout: DefaultWatchTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// Validate checks the run configuration.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Players <= 0:
		return fmt.Errorf("%w: players must be positive, got %d", ErrInvalidConfig, c.Players)
	case c.LeaveFraction < 0 || c.LeaveFraction > 1:
		return fmt.Errorf("%w: leave fraction must be within [0,1], got %v", ErrInvalidConfig, c.LeaveFraction)
	case c.RatingStdDev < 0:
		return fmt.Errorf("%w: rating stddev must be >= 0, got %v", ErrInvalidConfig, c.RatingStdDev)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.Timeout <= 0 || c.PollInterval <= 0:
		return fmt.Errorf("%w: timeout and poll interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Participant is the join payload sent to POST /queue.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SkillRating int    `json:"skill_rating"`
}

// Stats holds run statistics.
type Stats struct {
	Generated     int
	Joined        int
	Duplicate     int
	Rejected      int
	Failed        int
	Left          int
	AlreadyGone   int
	Remaining     int
	Drained       bool
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	DrainDuration time.Duration
}
