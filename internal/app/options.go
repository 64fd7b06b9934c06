package service

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/matchq/internal/domain/matchmaking"
	"github.com/okian/matchq/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for enqueue times, tickers and event stamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithQueueConfig sets the initial queue configuration. An invalid
// configuration is ignored and the defaults stay in place.
func WithQueueConfig(cfg matchmaking.Config) Option {
	return func(s *Service) {
		if cfg.Validate() == nil {
			s.cfg = cfg
		}
	}
}

// WithStatusDebounce sets how long queue-status notices are held back to
// coalesce bursts of joins and leaves. Zero disables them.
func WithStatusDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.statusDebounce = d
		}
	}
}

// WithMatchIDGenerator overrides how match ids are minted.
func WithMatchIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newMatchID = fn
		}
	}
}

// WithQueueCapacity bounds the number of waiting participants. Zero means unbounded.
func WithQueueCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity >= 0 {
			s.queueCapacity = capacity
		}
	}
}

// WithEventBufferSize sets the default buffer of channel subscriptions.
func WithEventBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.eventBuffer = size
		}
	}
}
