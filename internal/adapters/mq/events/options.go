package events

import (
	"github.com/benbjohnson/clock"

	"github.com/okian/matchq/pkg/logger"
)

// Option applies a configuration option to the Sink.
type Option func(*Sink)

// WithClock sets the clock used to stamp events.
func WithClock(c clock.Clock) Option {
	return func(s *Sink) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the sink.
func WithLogger(l logger.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}
