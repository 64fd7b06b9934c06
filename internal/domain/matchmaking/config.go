// Package matchmaking holds the skill-tolerance policy and the greedy match former.
package matchmaking

import (
	"fmt"
	"math"
	"time"
)

// Default queue configuration constants.
const (
	defaultMinPlayers        = 2
	defaultMaxPlayers        = 4
	defaultBaseTolerance     = 200
	defaultToleranceGrowth   = 50
	defaultMaxQueueTime      = 120 * time.Second
	defaultFormationInterval = time.Second
	defaultTickInterval      = time.Second
)

// Config is the queue configuration. It is immutable for a run and replaced wholesale.
type Config struct {
	MinPlayersPerMatch           int
	MaxPlayersPerMatch           int
	BaseSkillTolerance           float64
	ToleranceGrowthRatePerSecond float64
	MaxQueueTime                 time.Duration
	MatchFormationInterval       time.Duration
	QueueTickInterval            time.Duration
}

// DefaultConfig returns a valid two-to-four player configuration.
func DefaultConfig() Config {
	return Config{
		MinPlayersPerMatch:           defaultMinPlayers,
		MaxPlayersPerMatch:           defaultMaxPlayers,
		BaseSkillTolerance:           defaultBaseTolerance,
		ToleranceGrowthRatePerSecond: defaultToleranceGrowth,
		MaxQueueTime:                 defaultMaxQueueTime,
		MatchFormationInterval:       defaultFormationInterval,
		QueueTickInterval:            defaultTickInterval,
	}
}

// Validate reports the first violated bound wrapped in ErrInvalidConfiguration.
func (c Config) Validate() error {
	switch {
	case c.MinPlayersPerMatch < 2:
		return fmt.Errorf("%w: min players per match must be at least 2, got %d", ErrInvalidConfiguration, c.MinPlayersPerMatch)
	case c.MaxPlayersPerMatch < c.MinPlayersPerMatch:
		return fmt.Errorf("%w: max players per match (%d) below min (%d)", ErrInvalidConfiguration, c.MaxPlayersPerMatch, c.MinPlayersPerMatch)
	case !finiteNonNegative(c.BaseSkillTolerance):
		return fmt.Errorf("%w: base skill tolerance must be a finite value >= 0, got %v", ErrInvalidConfiguration, c.BaseSkillTolerance)
	case !finiteNonNegative(c.ToleranceGrowthRatePerSecond):
		return fmt.Errorf("%w: tolerance growth rate must be a finite value >= 0, got %v", ErrInvalidConfiguration, c.ToleranceGrowthRatePerSecond)
	case c.MaxQueueTime <= 0:
		return fmt.Errorf("%w: max queue time must be positive, got %s", ErrInvalidConfiguration, c.MaxQueueTime)
	case c.MatchFormationInterval <= 0:
		return fmt.Errorf("%w: match formation interval must be positive, got %s", ErrInvalidConfiguration, c.MatchFormationInterval)
	case c.QueueTickInterval <= 0:
		return fmt.Errorf("%w: queue tick interval must be positive, got %s", ErrInvalidConfiguration, c.QueueTickInterval)
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
