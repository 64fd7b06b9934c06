// Package service is the matchmaking facade: it owns the queue, the match
// former, the scheduler and the event sink, and serializes every mutation.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bep/debounce"

	"github.com/okian/matchq/internal/adapters/mq/events"
	"github.com/okian/matchq/internal/adapters/repository"
	"github.com/okian/matchq/internal/adapters/scheduler"
	"github.com/okian/matchq/internal/domain/matchmaking"
	"github.com/okian/matchq/internal/domain/model"
	"github.com/okian/matchq/pkg/logger"
	"github.com/okian/matchq/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultStatusDebounce = 250 * time.Millisecond
	defaultEventBuffer    = 256
)

// Service implements the matchmaking API.
//
// mu guards the queue and the active configuration; events are published
// while it is held so subscribers observe them in mutation order. lifecycle
// serializes Start, Stop, Configure and Close, and is never taken by the
// scheduled tasks, so stopping the scheduler can wait for them.
type Service struct {
	lifecycle sync.Mutex

	mu            sync.Mutex
	cfg           matchmaking.Config
	former        *matchmaking.Former
	store         *repository.QueueStore
	closed        bool
	matchesFormed int
	evicted       int

	sink      *events.Sink
	scheduler *scheduler.Scheduler
	debounced func(func())

	// Configuration
	queueCapacity  int
	eventBuffer    int
	statusDebounce time.Duration
	newMatchID     func() string

	clock  clock.Clock
	logger logger.Logger
}

// New constructs a stopped Service. Participants can join and leave before
// Start; no matches form until the scheduler runs.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:            matchmaking.DefaultConfig(),
		eventBuffer:    defaultEventBuffer,
		statusDebounce: defaultStatusDebounce,
		clock:          clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("matchmaking")
	}

	s.store = repository.NewQueueStore(repository.WithCapacity(s.queueCapacity))
	s.former = s.newFormer(s.cfg)
	s.sink = events.NewSink(
		events.WithClock(s.clock),
		events.WithLogger(s.logger.Named("events")),
	)
	s.scheduler = scheduler.New(s.formationTask, s.tickTask,
		scheduler.WithClock(s.clock),
		scheduler.WithLogger(s.logger.Named("scheduler")),
		scheduler.WithIntervals(s.cfg.MatchFormationInterval, s.cfg.QueueTickInterval),
	)
	if s.statusDebounce > 0 {
		s.debounced = debounce.New(s.statusDebounce)
	}
	metrics.UpdateQueueSize(0)
	return s
}

func (s *Service) newFormer(cfg matchmaking.Config) *matchmaking.Former {
	return matchmaking.NewFormer(cfg, matchmaking.WithIDGenerator(s.newMatchID))
}

func (s *Service) formationTask(ctx context.Context) { s.RunFormationCycle(ctx) }

func (s *Service) tickTask(ctx context.Context) { s.Tick(ctx) }

// JoinQueue admits a participant stamped with the current time.
func (s *Service) JoinQueue(ctx context.Context, id, displayName string, skillRating int) error {
	if id == "" || displayName == "" {
		metrics.RecordJoinRejected("invalid")
		return fmt.Errorf("%w: id and display name are required", ErrInvalidParticipant)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	p := model.Participant{
		ID:          id,
		DisplayName: displayName,
		SkillRating: skillRating,
		EnqueuedAt:  s.clock.Now(),
	}
	if err := s.store.Join(ctx, p); err != nil {
		metrics.RecordJoinRejected(rejectReason(err))
		s.logger.Debug(ctx, "join rejected", logger.String("participant", id), logger.Error(err))
		return err
	}

	metrics.RecordJoin()
	metrics.UpdateQueueSize(s.store.Len(ctx))
	s.sink.Publish(ctx, model.PlayerJoined(p))
	s.logger.Debug(ctx, "participant joined",
		logger.String("participant", id),
		logger.Int("skill_rating", skillRating),
	)
	s.statusLater()
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateParticipant):
		return "duplicate"
	case errors.Is(err, ErrQueueFull):
		return "full"
	default:
		return "other"
	}
}

// LeaveQueue removes a waiting participant. Leaving twice returns ErrNotInQueue.
func (s *Service) LeaveQueue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.Leave(ctx, id)
	if err != nil {
		metrics.RecordLeaveNotInQueue()
		return err
	}

	metrics.RecordLeave(string(model.LeaveVoluntary), p.WaitTime(s.clock.Now()))
	metrics.UpdateQueueSize(s.store.Len(ctx))
	s.sink.Publish(ctx, model.PlayerLeft(p, model.LeaveVoluntary))
	s.logger.Debug(ctx, "participant left", logger.String("participant", id))
	s.statusLater()
	return nil
}

// RunFormationCycle forms as many matches as the queue allows right now.
// Each member's PlayerLeftQueue(matched) precedes the MatchFound of its match.
func (s *Service) RunFormationCycle(ctx context.Context) []model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	formed := s.former.Cycle(ctx, s.store, now, func(ctx context.Context, m model.Match) {
		for _, p := range m.Members {
			metrics.RecordLeave(string(model.LeaveMatched), p.WaitTime(now))
			s.sink.Publish(ctx, model.PlayerLeft(p, model.LeaveMatched))
		}
		metrics.RecordMatchFormed(len(m.Members), m.Tolerance, m.AverageSkillRating)
		s.sink.Publish(ctx, model.MatchFound(m))
		s.logger.Info(ctx, "match formed",
			logger.String("match", m.MatchID),
			logger.Strings("members", m.MemberIDs()),
			logger.Float64("average_rating", m.AverageSkillRating),
			logger.Float64("tolerance", m.Tolerance),
		)
	})
	if len(formed) == 0 {
		return nil
	}

	s.matchesFormed += len(formed)
	metrics.UpdateQueueSize(s.store.Len(ctx))
	s.statusLater()
	return formed
}

// Tick evicts every participant that has waited longer than MaxQueueTime and
// returns them oldest first.
func (s *Service) Tick(ctx context.Context) []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	expired := s.store.Expired(ctx, now, s.cfg.MaxQueueTime)
	if len(expired) == 0 {
		return nil
	}

	ids := make([]string, len(expired))
	for i, p := range expired {
		ids[i] = p.ID
	}
	evicted := s.store.Remove(ctx, ids...)
	for _, p := range evicted {
		metrics.RecordLeave(string(model.LeaveTimeout), p.WaitTime(now))
		s.sink.Publish(ctx, model.PlayerLeft(p, model.LeaveTimeout))
	}

	s.evicted += len(evicted)
	metrics.UpdateQueueSize(s.store.Len(ctx))
	s.logger.Info(ctx, "evicted timed out participants",
		logger.Int("count", len(evicted)),
		logger.Duration("max_queue_time", s.cfg.MaxQueueTime),
	)
	s.statusLater()
	return evicted
}

// Configure validates cfg and replaces the active configuration. On error the
// previous configuration stays in effect. A running scheduler restarts on the
// new intervals.
func (s *Service) Configure(ctx context.Context, cfg matchmaking.Config) error {
	if err := cfg.Validate(); err != nil {
		metrics.RecordConfigRejected()
		s.logger.Warn(ctx, "configuration rejected", logger.Error(err))
		return err
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.cfg = cfg
	s.former = s.newFormer(cfg)
	s.sink.Publish(ctx, model.StatusChanged("configuration updated"))
	s.mu.Unlock()

	if err := s.scheduler.Reset(cfg.MatchFormationInterval, cfg.QueueTickInterval); err != nil {
		return fmt.Errorf("reset scheduler: %w", err)
	}

	metrics.RecordConfigChange()
	s.logger.Info(ctx, "configuration updated",
		logger.Int("min_players", cfg.MinPlayersPerMatch),
		logger.Int("max_players", cfg.MaxPlayersPerMatch),
		logger.Float64("base_tolerance", cfg.BaseSkillTolerance),
		logger.Float64("tolerance_growth", cfg.ToleranceGrowthRatePerSecond),
		logger.Duration("max_queue_time", cfg.MaxQueueTime),
	)
	return nil
}

// Config returns the active configuration.
func (s *Service) Config() matchmaking.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Start runs the formation and tick loops. Starting a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.isClosed() {
		return ErrClosed
	}
	if err := s.scheduler.Start(ctx); err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			return nil
		}
		return fmt.Errorf("start scheduler: %w", err)
	}

	s.mu.Lock()
	n := s.store.Len(ctx)
	s.sink.Publish(ctx, model.StatusChanged("matchmaking started, "+searching(n)))
	s.mu.Unlock()
	return nil
}

// Stop halts the loops after any in-flight cycle completes. Join and Leave
// keep working while stopped.
func (s *Service) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

func (s *Service) stopLocked() {
	if !s.scheduler.Stop() {
		return
	}
	ctx := context.Background()
	s.mu.Lock()
	s.sink.Publish(ctx, model.StatusChanged("matchmaking stopped"))
	s.mu.Unlock()
}

// Running reports whether the scheduler is running.
func (s *Service) Running() bool {
	return s.scheduler.State() == scheduler.Running
}

// Close stops the scheduler and closes every subscription. The service
// rejects further joins and configuration changes.
func (s *Service) Close(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopLocked()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.sink.Close()
	s.logger.Info(ctx, "matchmaking service closed", logger.Int("abandoned", s.store.Len(ctx)))
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// QueueSize returns the number of waiting participants.
func (s *Service) QueueSize(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len(ctx)
}

// Snapshot returns the waiting participants, oldest first.
func (s *Service) Snapshot(ctx context.Context) []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot(ctx)
}

// EstimatedWait guesses how much longer id will wait. It assumes every
// formation cycle drains one full match ahead of the participant and caps the
// guess at the time left before eviction. It is not a guarantee.
func (s *Service) EstimatedWait(ctx context.Context, id string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	pos, err := s.store.Position(ctx, id)
	if err != nil {
		return 0, err
	}

	rounds := pos/s.cfg.MaxPlayersPerMatch + 1
	estimate := time.Duration(rounds) * s.cfg.MatchFormationInterval
	if remaining := s.cfg.MaxQueueTime - p.WaitTime(s.clock.Now()); estimate > remaining {
		estimate = remaining
	}
	if estimate < 0 {
		estimate = 0
	}
	return estimate, nil
}

// Subscribe registers a handler for every event. Handlers run synchronously
// with the queue lock held and must not call back into the Service.
func (s *Service) Subscribe(h events.Handler) (unsubscribe func()) {
	return s.sink.Subscribe(h)
}

// SubscribeChan returns a buffered event channel. A non-positive buffer uses
// the service default. Events that do not fit are dropped.
func (s *Service) SubscribeChan(buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = s.eventBuffer
	}
	return s.sink.SubscribeChan(buffer)
}

// statusLater schedules a queue-status notice. Must be called with mu held;
// the notice itself is published from the debounce timer.
func (s *Service) statusLater() {
	if s.debounced == nil {
		return
	}
	s.debounced(s.announceStatus)
}

func (s *Service) announceStatus() {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.sink.Publish(ctx, model.StatusChanged(searching(s.store.Len(ctx))))
}

func searching(n int) string {
	if n == 1 {
		return "1 player searching"
	}
	return fmt.Sprintf("%d players searching", n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	ctx := context.Background()
	running := s.Running()
	formation, tick := s.scheduler.Intervals()

	s.mu.Lock()
	defer s.mu.Unlock()

	queueLen := s.store.Len(ctx)
	metrics.UpdateQueueSize(queueLen)

	return map[string]interface{}{
		"running":                  running,
		"queueLength":              queueLen,
		"queueCapacity":            s.queueCapacity,
		"matchesFormed":            s.matchesFormed,
		"evicted":                  s.evicted,
		"subscribers":              s.sink.Subscribers(),
		"minPlayersPerMatch":       s.cfg.MinPlayersPerMatch,
		"maxPlayersPerMatch":       s.cfg.MaxPlayersPerMatch,
		"baseSkillTolerance":       s.cfg.BaseSkillTolerance,
		"toleranceGrowthPerSecond": s.cfg.ToleranceGrowthRatePerSecond,
		"maxQueueTimeSeconds":      s.cfg.MaxQueueTime.Seconds(),
		"formationIntervalSeconds": formation.Seconds(),
		"queueTickIntervalSeconds": tick.Seconds(),
	}
}
