package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchq/internal/config"
	"github.com/okian/matchq/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a process configuration", t, func() {
		cfg := config.New()
		cfg.MinPlayers = 3
		cfg.MaxPlayers = 6
		cfg.QueueCapacity = 1

		convey.Convey("When the service is built from it", func() {
			svc := newService(cfg, logger.Get())
			defer svc.Close(context.Background())

			convey.Convey("Then the queue settings are applied", func() {
				convey.So(svc.Config().MinPlayersPerMatch, convey.ShouldEqual, 3)
				convey.So(svc.Config().MaxPlayersPerMatch, convey.ShouldEqual, 6)
				convey.So(svc.Running(), convey.ShouldBeFalse)
				convey.So(svc.GetStats()["queueCapacity"], convey.ShouldEqual, 1)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the application mux", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc := newService(cfg, logger.Get())
		defer svc.Close(ctx)
		mux := newMux(ctx, svc, cfg)

		convey.Convey("Then the API and the docs are served", func() {
			for _, path := range []string{"/healthz", "/stats", "/queue", "/config", "/scheduler", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a join through the mux reaches the service", func() {
			w := httptest.NewRecorder()
			body := strings.NewReader(`{"id":"p1","display_name":"Alice","skill_rating":1000}`)
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/queue", body))
			convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
			convey.So(svc.QueueSize(ctx), convey.ShouldEqual, 1)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Get()) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestUpdateMetrics(t *testing.T) {
	convey.Convey("Given the metric updaters", t, func() {
		svc := newService(config.New(), logger.Get())
		defer svc.Close(context.Background())

		convey.Convey("Then they run without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
