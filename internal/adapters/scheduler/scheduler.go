// Package scheduler drives the two periodic matchmaking activities: the
// formation cycle and the queue tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/matchq/pkg/logger"
	"github.com/okian/matchq/pkg/metrics"
)

// Default periods, used until WithIntervals or Reset says otherwise.
const (
	defaultFormationInterval = time.Second
	defaultTickInterval      = time.Second
)

// Activity names, used in logs and metrics.
const (
	ActivityFormation = "formation"
	ActivityTick      = "tick"
)

// Task is one run of a periodic activity.
type Task func(ctx context.Context)

// State of the scheduler.
type State int32

// Scheduler states.
const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Scheduler runs the formation and tick tasks on independent tickers.
// Stopping is cooperative: a task that is already running completes, and no
// task starts after Stop returns.
type Scheduler struct {
	formation Task
	tick      Task

	mu             sync.Mutex
	state          State
	formationEvery time.Duration
	tickEvery      time.Duration
	base           context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	clock  clock.Clock
	logger logger.Logger
}

// New creates a stopped scheduler. Nil tasks are treated as no-ops.
func New(formation, tick Task, opts ...Option) *Scheduler {
	noop := func(context.Context) {}
	if formation == nil {
		formation = noop
	}
	if tick == nil {
		tick = noop
	}
	s := &Scheduler{
		formation:      formation,
		tick:           tick,
		formationEvery: defaultFormationInterval,
		tickEvery:      defaultTickInterval,
		clock:          clock.New(),
		logger:         logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateSchedulerRunning(false)
	return s
}

// Start moves the scheduler to Running. Cancelling ctx does not stop the
// loops; only Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Running {
		return ErrAlreadyRunning
	}
	s.base = context.WithoutCancel(ctx)
	s.launch()
	s.state = Running
	metrics.UpdateSchedulerRunning(true)
	s.logger.Info(ctx, "scheduler started",
		logger.Duration("formation_interval", s.formationEvery),
		logger.Duration("tick_interval", s.tickEvery),
	)
	return nil
}

// launch must be called with mu held. Tickers are created before the
// goroutines start so that a clock advanced right after Start is observed.
func (s *Scheduler) launch() {
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel

	formation := s.clock.Ticker(s.formationEvery)
	tick := s.clock.Ticker(s.tickEvery)

	s.wg.Add(2)
	go s.loop(ctx, ActivityFormation, formation, s.formation)
	go s.loop(ctx, ActivityTick, tick, s.tick)
}

// halt must be called with mu held.
func (s *Scheduler) halt() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
}

// Stop moves the scheduler to Stopped and waits for in-flight tasks. It
// reports whether the scheduler was running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return false
	}
	s.halt()
	s.state = Stopped
	metrics.UpdateSchedulerRunning(false)
	s.logger.Info(s.base, "scheduler stopped")
	return true
}

// Reset changes both periods. A running scheduler is restarted on the new
// periods; a stopped one picks them up on the next Start.
func (s *Scheduler) Reset(formation, tick time.Duration) error {
	if formation <= 0 || tick <= 0 {
		return fmt.Errorf("formation %s, tick %s: %w", formation, tick, ErrInvalidInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.formationEvery = formation
	s.tickEvery = tick
	if s.state != Running {
		return nil
	}
	s.halt()
	s.launch()
	s.logger.Info(s.base, "scheduler restarted",
		logger.Duration("formation_interval", formation),
		logger.Duration("tick_interval", tick),
	)
	return nil
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Intervals returns the formation and tick periods.
func (s *Scheduler) Intervals() (formation, tick time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formationEvery, s.tickEvery
}

func (s *Scheduler) loop(ctx context.Context, activity string, ticker *clock.Ticker, task Task) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.run(ctx, activity, task)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, activity string, task Task) {
	start := time.Now()
	defer func() {
		metrics.RecordSchedulerRun(activity, float64(time.Since(start).Milliseconds()))
		if r := recover(); r != nil {
			s.logger.Error(ctx, "scheduled task panicked",
				logger.String("activity", activity),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	task(ctx)
}
