package scheduler

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/matchq/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock that drives both tickers.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIntervals sets the formation and tick periods. Non-positive values are ignored.
func WithIntervals(formation, tick time.Duration) Option {
	return func(s *Scheduler) {
		if formation > 0 {
			s.formationEvery = formation
		}
		if tick > 0 {
			s.tickEvery = tick
		}
	}
}
