package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/matchq/internal/loadgen"
	"github.com/okian/matchq/pkg/logger"
)

// defaultRunTimeout bounds a whole load run.
const defaultRunTimeout = 10 * time.Minute

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "load run failed:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cfg := loadgen.DefaultConfig()
	var (
		logLevel   string
		runTimeout time.Duration
	)

	return &cli.App{
		Name:  "loadgen",
		Usage: "join synthetic players to a matchq service and watch the queue drain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Aliases:     []string{"u"},
				Value:       loadgen.DefaultBaseURL,
				Usage:       "base URL of the service",
				Destination: &cfg.BaseURL,
			}, &cli.IntFlag{
				Name:        "players",
				Aliases:     []string{"n"},
				Value:       loadgen.DefaultPlayers,
				Usage:       "number of participants to join",
				Destination: &cfg.Players,
			}, &cli.Float64Flag{
				Name:        "leave-fraction",
				Usage:       "share of joined participants that leave voluntarily",
				Destination: &cfg.LeaveFraction,
			}, &cli.Float64Flag{
				Name:        "rating-mean",
				Value:       loadgen.DefaultRatingMean,
				Destination: &cfg.RatingMean,
			}, &cli.Float64Flag{
				Name:        "rating-stddev",
				Value:       loadgen.DefaultRatingStdDev,
				Destination: &cfg.RatingStdDev,
			}, &cli.IntFlag{
				Name:        "workers",
				Aliases:     []string{"w"},
				Value:       loadgen.DefaultWorkers,
				Destination: &cfg.Workers,
			}, &cli.DurationFlag{
				Name:        "timeout",
				Value:       loadgen.DefaultTimeout,
				Usage:       "HTTP request timeout",
				Destination: &cfg.Timeout,
			}, &cli.DurationFlag{
				Name:        "watch-timeout",
				Value:       loadgen.DefaultWatchTimeout,
				Usage:       "how long to wait for the queue to drain",
				Destination: &cfg.WatchTimeout,
			}, &cli.DurationFlag{
				Name:        "poll-interval",
				Value:       loadgen.DefaultPollInterval,
				Destination: &cfg.PollInterval,
			}, &cli.Int64Flag{
				Name:        "seed",
				Usage:       "rating generator seed (0 uses the clock)",
				Destination: &cfg.Seed,
			}, &cli.DurationFlag{
				Name:        "run-timeout",
				Value:       defaultRunTimeout,
				Destination: &runTimeout,
			}, &cli.StringFlag{
				Name:        "log-level",
				Value:       "info",
				Destination: &logLevel,
			}, &cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Destination: &cfg.Verbose,
			},
		},
		Action: func(c *cli.Context) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			stats, err := loadgen.Run(ctx, cfg)
			if err != nil {
				return err
			}
			if !stats.Drained {
				return cli.Exit(fmt.Sprintf("%d participants still queued", stats.Remaining), 2)
			}
			return nil
		},
	}
}
