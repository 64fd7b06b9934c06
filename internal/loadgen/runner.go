package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/matchq/pkg/logger"
)

// percentageMultiplier converts ratios to percentages in the summary.
const percentageMultiplier = 100

// joinOutcome classifies a POST /queue response.
type joinOutcome int

const (
	joinFailed joinOutcome = iota
	joinAccepted
	joinDuplicate
	joinRejected
)

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting matchq load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Float64("leaveFraction", cfg.LeaveFraction),
		logger.Int("workers", cfg.Workers),
		logger.Duration("watchTimeout", cfg.WatchTimeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate participants
	participants := generateParticipants(cfg.Players, cfg.RatingMean, cfg.RatingStdDev, rng)
	stats.Generated = len(participants)

	// Step 3: Join concurrently
	joined := submitJoins(ctx, log, client, cfg, participants, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("join phase interrupted: %w", err)
	}

	// Step 4: A fraction leaves voluntarily
	leavers := pickLeavers(joined, cfg.LeaveFraction, rng)
	submitLeaves(ctx, log, client, cfg, leavers, stats)

	// Step 5: Watch the queue drain
	watchDrain(ctx, log, client, cfg, joined, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	return stats, nil
}

// checkServiceHealth verifies the service answers /healthz.
func checkServiceHealth(ctx context.Context, client *httpClient) error {
	status, _, err := client.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: /healthz returned %d", ErrUnhealthy, status)
	}
	return nil
}

// runPool feeds items to n workers and waits for them to finish.
func runPool[T any](ctx context.Context, workers int, items []T, fn func(T)) {
	ch := make(chan T, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range ch {
				if ctx.Err() != nil {
					continue
				}
				fn(item)
			}
		}()
	}

	func() {
		defer close(ch)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case ch <- item:
			}
		}
	}()
	wg.Wait()
}

// submitJoins posts every participant and returns the ids the service accepted.
func submitJoins(ctx context.Context, log logger.Logger, client *httpClient, cfg *Config, participants []Participant, stats *Stats) []string {
	log.Info(ctx, "submitting joins", logger.Int("participants", len(participants)), logger.Int("workers", cfg.Workers))

	var accepted, duplicate, rejected, failed int64
	var mu sync.Mutex
	joined := make([]string, 0, len(participants))

	runPool(ctx, cfg.Workers, participants, func(p Participant) {
		switch outcome := join(ctx, client, p); outcome {
		case joinAccepted:
			atomic.AddInt64(&accepted, 1)
			mu.Lock()
			joined = append(joined, p.ID)
			mu.Unlock()
		case joinDuplicate:
			atomic.AddInt64(&duplicate, 1)
		case joinRejected:
			atomic.AddInt64(&rejected, 1)
		default:
			atomic.AddInt64(&failed, 1)
		}
	})

	stats.Joined = int(accepted)
	stats.Duplicate = int(duplicate)
	stats.Rejected = int(rejected)
	stats.Failed = int(failed)

	if cfg.Verbose && (duplicate > 0 || rejected > 0 || failed > 0) {
		log.Warn(ctx, "some joins were not accepted",
			logger.Int("duplicate", stats.Duplicate),
			logger.Int("rejected", stats.Rejected),
			logger.Int("failed", stats.Failed))
	}
	log.Info(ctx, "join phase completed", logger.Int("joined", stats.Joined))
	return joined
}

func join(ctx context.Context, client *httpClient, p Participant) joinOutcome {
	status, _, err := client.do(ctx, http.MethodPost, "/queue", p)
	if err != nil {
		return joinFailed
	}
	switch status {
	case http.StatusAccepted:
		return joinAccepted
	case http.StatusConflict:
		return joinDuplicate
	case http.StatusBadRequest, http.StatusTooManyRequests:
		return joinRejected
	default:
		return joinFailed
	}
}

// submitLeaves removes the given ids; a 404 means a match or eviction got there first.
func submitLeaves(ctx context.Context, log logger.Logger, client *httpClient, cfg *Config, ids []string, stats *Stats) {
	if len(ids) == 0 {
		return
	}
	var left, gone int64
	runPool(ctx, cfg.Workers, ids, func(id string) {
		status, _, err := client.do(ctx, http.MethodDelete, "/queue/"+id, nil)
		switch {
		case err != nil:
			if cfg.Verbose {
				log.Warn(ctx, "leave failed", logger.String("id", id), logger.Error(err))
			}
		case status == http.StatusOK:
			atomic.AddInt64(&left, 1)
		case status == http.StatusNotFound:
			atomic.AddInt64(&gone, 1)
		}
	})
	stats.Left = int(left)
	stats.AlreadyGone = int(gone)
	log.Info(ctx, "leave phase completed", logger.Int("left", stats.Left), logger.Int("alreadyGone", stats.AlreadyGone))
}

// watchDrain polls GET /queue until none of the joined ids remain or the watch timeout passes.
func watchDrain(ctx context.Context, log logger.Logger, client *httpClient, cfg *Config, joined []string, stats *Stats) {
	ours := make(map[string]struct{}, len(joined))
	for _, id := range joined {
		ours[id] = struct{}{}
	}

	start := time.Now()
	watchCtx, cancel := context.WithTimeout(ctx, cfg.WatchTimeout)
	defer cancel()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		remaining, err := countRemaining(watchCtx, client, ours)
		switch {
		case err == nil:
			stats.Remaining = remaining
			if remaining == 0 {
				stats.Drained = true
				stats.DrainDuration = time.Since(start)
				return
			}
			if cfg.Verbose {
				log.Debug(ctx, "queue still draining", logger.Int("remaining", remaining))
			}
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		default:
			log.Warn(ctx, "queue poll failed", logger.Error(err))
		}

		select {
		case <-watchCtx.Done():
			stats.DrainDuration = time.Since(start)
			log.Warn(ctx, "queue did not drain before the watch timeout", logger.Int("remaining", stats.Remaining))
			return
		case <-ticker.C:
		}
	}
}

func countRemaining(ctx context.Context, client *httpClient, ours map[string]struct{}) (int, error) {
	view, err := client.queue(ctx)
	if err != nil {
		return 0, err
	}
	remaining := 0
	for _, p := range view.Participants {
		if _, ok := ours[p.ID]; ok {
			remaining++
		}
	}
	return remaining, nil
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	acceptance := 0.0
	if stats.Generated > 0 {
		acceptance = float64(stats.Joined) / float64(stats.Generated) * percentageMultiplier
	}
	log.Info(ctx, "load run summary",
		logger.Int("generated", stats.Generated),
		logger.Int("joined", stats.Joined),
		logger.Float64("acceptancePercent", acceptance),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("left", stats.Left),
		logger.Int("alreadyGone", stats.AlreadyGone),
		logger.Int("remaining", stats.Remaining),
		logger.Bool("drained", stats.Drained),
		logger.Duration("drainDuration", stats.DrainDuration),
		logger.Duration("duration", stats.Duration))
}
