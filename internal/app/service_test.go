package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/matchq/internal/app"
	"github.com/okian/matchq/internal/domain/matchmaking"
	"github.com/okian/matchq/internal/domain/model"
	"github.com/okian/matchq/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) handle(_ context.Context, e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// trace renders events as kind:subject pairs for order assertions.
func (r *recorder) trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		switch e.Kind {
		case model.KindPlayerJoinedQueue:
			out = append(out, "joined:"+e.Participant.ID)
		case model.KindPlayerLeftQueue:
			out = append(out, fmt.Sprintf("left:%s:%s", e.Participant.ID, e.Reason))
		case model.KindMatchFound:
			out = append(out, "match:"+strings.Join(e.Match.MemberIDs(), ","))
		case model.KindStatusChanged:
			out = append(out, "status:"+e.Message)
		}
	}
	return out
}

func scenarioConfig() matchmaking.Config {
	cfg := matchmaking.DefaultConfig()
	cfg.BaseSkillTolerance = 200
	cfg.ToleranceGrowthRatePerSecond = 50
	cfg.MinPlayersPerMatch = 2
	cfg.MaxPlayersPerMatch = 4
	return cfg
}

func newService(cfg matchmaking.Config, opts ...service.Option) (*service.Service, *clock.Mock, *recorder) {
	mock := clock.NewMock()
	mock.Set(t0)
	base := []service.Option{
		service.WithClock(mock),
		service.WithQueueConfig(cfg),
		service.WithStatusDebounce(0),
	}
	svc := service.New(append(base, opts...)...)
	rec := &recorder{}
	svc.Subscribe(rec.handle)
	return svc, mock, rec
}

func TestService_Scenarios(t *testing.T) {
	ctx := context.Background()

	Convey("Scenario A: a grown tolerance admits P2 at t=4s", t, func() {
		svc, mock, rec := newService(scenarioConfig())
		So(svc.JoinQueue(ctx, "P1", "One", 1000), ShouldBeNil)
		mock.Add(4 * time.Second)
		So(svc.JoinQueue(ctx, "P2", "Two", 1380), ShouldBeNil)

		matches := svc.RunFormationCycle(ctx)

		Convey("Then one match is formed and members leave before it is announced", func() {
			So(matches, ShouldHaveLength, 1)
			So(matches[0].MemberIDs(), ShouldResemble, []string{"P1", "P2"})
			So(matches[0].Tolerance, ShouldEqual, 400)
			So(svc.QueueSize(ctx), ShouldEqual, 0)
			So(rec.trace(), ShouldResemble, []string{
				"joined:P1",
				"joined:P2",
				"left:P1:matched",
				"left:P2:matched",
				"match:P1,P2",
			})
		})
	})

	Convey("Scenario B: P2 waits one more second", t, func() {
		svc, mock, _ := newService(scenarioConfig())
		So(svc.JoinQueue(ctx, "P1", "One", 1000), ShouldBeNil)
		mock.Add(4 * time.Second)
		So(svc.JoinQueue(ctx, "P2", "Two", 1450), ShouldBeNil)

		Convey("Then nothing forms at t=4s", func() {
			So(svc.RunFormationCycle(ctx), ShouldBeEmpty)
			So(svc.QueueSize(ctx), ShouldEqual, 2)

			Convey("And the match forms at t=5s", func() {
				mock.Add(time.Second)
				matches := svc.RunFormationCycle(ctx)
				So(matches, ShouldHaveLength, 1)
				So(matches[0].Tolerance, ShouldEqual, 450)
			})
		})
	})

	Convey("Scenario C: three players required", t, func() {
		cfg := scenarioConfig()
		cfg.MinPlayersPerMatch = 3
		svc, mock, _ := newService(cfg)
		So(svc.JoinQueue(ctx, "P1", "One", 1000), ShouldBeNil)
		So(svc.JoinQueue(ctx, "P2", "Two", 1050), ShouldBeNil)
		mock.Add(3 * time.Second)

		Convey("Then two compatible players stay queued", func() {
			So(svc.RunFormationCycle(ctx), ShouldBeEmpty)
			So(svc.QueueSize(ctx), ShouldEqual, 2)
		})

		Convey("Then a third compatible player completes the match", func() {
			So(svc.JoinQueue(ctx, "P3", "Three", 980), ShouldBeNil)
			matches := svc.RunFormationCycle(ctx)
			So(matches, ShouldHaveLength, 1)
			So(matches[0].Members, ShouldHaveLength, 3)
			So(svc.QueueSize(ctx), ShouldEqual, 0)
		})
	})

	Convey("Scenario D: a duplicate join is rejected", t, func() {
		svc, _, rec := newService(scenarioConfig())
		So(svc.JoinQueue(ctx, "p1", "Alice", 1200), ShouldBeNil)
		err := svc.JoinQueue(ctx, "p1", "Bob", 1500)

		Convey("Then the first entry is kept unchanged", func() {
			So(errors.Is(err, service.ErrDuplicateParticipant), ShouldBeTrue)
			So(svc.QueueSize(ctx), ShouldEqual, 1)
			snap := svc.Snapshot(ctx)
			So(snap[0].DisplayName, ShouldEqual, "Alice")
			So(snap[0].SkillRating, ShouldEqual, 1200)
			So(rec.trace(), ShouldResemble, []string{"joined:p1"})
		})
	})
}

func TestService_QueueOperations(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a ten second queue limit", t, func() {
		cfg := scenarioConfig()
		cfg.MaxQueueTime = 10 * time.Second
		svc, mock, rec := newService(cfg)
		So(svc.JoinQueue(ctx, "p1", "Alice", 1000), ShouldBeNil)

		Convey("When exactly the limit has passed", func() {
			mock.Add(10 * time.Second)

			Convey("Then the participant is not evicted yet", func() {
				So(svc.Tick(ctx), ShouldBeEmpty)
				So(svc.QueueSize(ctx), ShouldEqual, 1)
			})

			Convey("Then one moment later it is evicted with a timeout", func() {
				mock.Add(time.Millisecond)
				evicted := svc.Tick(ctx)
				So(evicted, ShouldHaveLength, 1)
				So(evicted[0].ID, ShouldEqual, "p1")
				So(svc.QueueSize(ctx), ShouldEqual, 0)
				So(rec.trace(), ShouldResemble, []string{"joined:p1", "left:p1:timeout"})
				So(svc.GetStats()["evicted"], ShouldEqual, 1)
			})
		})

		Convey("When the participant leaves twice", func() {
			first := svc.LeaveQueue(ctx, "p1")
			second := svc.LeaveQueue(ctx, "p1")

			Convey("Then only the first succeeds and the state is unchanged by the second", func() {
				So(first, ShouldBeNil)
				So(errors.Is(second, service.ErrNotInQueue), ShouldBeTrue)
				So(svc.QueueSize(ctx), ShouldEqual, 0)
				So(rec.trace(), ShouldResemble, []string{"joined:p1", "left:p1:voluntary"})
			})

			Convey("Then the participant may join again", func() {
				So(svc.JoinQueue(ctx, "p1", "Alice", 1000), ShouldBeNil)
				So(svc.QueueSize(ctx), ShouldEqual, 1)
			})
		})

		Convey("When a participant without a name joins", func() {
			err := svc.JoinQueue(ctx, "p2", "", 1000)

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, service.ErrInvalidParticipant), ShouldBeTrue)
				So(svc.QueueSize(ctx), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a queue with room for one", t, func() {
		svc, _, _ := newService(scenarioConfig(), service.WithQueueCapacity(1))
		So(svc.JoinQueue(ctx, "p1", "Alice", 1000), ShouldBeNil)

		Convey("Then a second join reports a full queue", func() {
			err := svc.JoinQueue(ctx, "p2", "Bob", 1000)
			So(errors.Is(err, service.ErrQueueFull), ShouldBeTrue)
			So(svc.QueueSize(ctx), ShouldEqual, 1)
		})
	})
}

func TestService_EstimatedWait(t *testing.T) {
	ctx := context.Background()

	Convey("Given six waiting participants in matches of four", t, func() {
		svc, _, _ := newService(scenarioConfig())
		for i := 0; i < 6; i++ {
			So(svc.JoinQueue(ctx, fmt.Sprintf("p%d", i), "player", 1000+i), ShouldBeNil)
		}

		Convey("Then the first four expect one formation interval", func() {
			wait, err := svc.EstimatedWait(ctx, "p3")
			So(err, ShouldBeNil)
			So(wait, ShouldEqual, time.Second)
		})

		Convey("Then the fifth expects two", func() {
			wait, err := svc.EstimatedWait(ctx, "p4")
			So(err, ShouldBeNil)
			So(wait, ShouldEqual, 2*time.Second)
		})

		Convey("Then an unknown id is reported", func() {
			_, err := svc.EstimatedWait(ctx, "nobody")
			So(errors.Is(err, service.ErrNotInQueue), ShouldBeTrue)
		})
	})

	Convey("Given a formation interval longer than the time left", t, func() {
		cfg := scenarioConfig()
		cfg.MaxQueueTime = 10 * time.Second
		cfg.MatchFormationInterval = 30 * time.Second
		svc, mock, _ := newService(cfg)
		So(svc.JoinQueue(ctx, "p1", "Alice", 1000), ShouldBeNil)
		mock.Add(4 * time.Second)

		Convey("Then the estimate is capped at the eviction deadline", func() {
			wait, err := svc.EstimatedWait(ctx, "p1")
			So(err, ShouldBeNil)
			So(wait, ShouldEqual, 6*time.Second)
		})

		Convey("Then it never goes negative", func() {
			mock.Add(20 * time.Second)
			wait, err := svc.EstimatedWait(ctx, "p1")
			So(err, ShouldBeNil)
			So(wait, ShouldEqual, 0)
		})
	})
}

func TestService_Configure(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with the scenario configuration", t, func() {
		svc, _, rec := newService(scenarioConfig())

		Convey("When an invalid configuration is applied", func() {
			bad := scenarioConfig()
			bad.MinPlayersPerMatch = 5
			err := svc.Configure(ctx, bad)

			Convey("Then it is rejected and the previous one stays", func() {
				So(errors.Is(err, service.ErrInvalidConfiguration), ShouldBeTrue)
				So(svc.Config(), ShouldResemble, scenarioConfig())
				So(rec.trace(), ShouldBeEmpty)
			})
		})

		Convey("When a valid configuration is applied", func() {
			next := scenarioConfig()
			next.BaseSkillTolerance = 500
			So(svc.Configure(ctx, next), ShouldBeNil)

			Convey("Then it takes effect and observers are told", func() {
				So(svc.Config().BaseSkillTolerance, ShouldEqual, 500)
				So(rec.trace(), ShouldResemble, []string{"status:configuration updated"})
			})

			Convey("Then the next cycle uses the new tolerance", func() {
				So(svc.JoinQueue(ctx, "a", "A", 1000), ShouldBeNil)
				So(svc.JoinQueue(ctx, "b", "B", 1450), ShouldBeNil)
				So(svc.RunFormationCycle(ctx), ShouldHaveLength, 1)
			})
		})
	})
}

func TestService_Subscriptions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a channel subscriber", t, func() {
		svc, _, _ := newService(scenarioConfig())
		ch, unsubscribe := svc.SubscribeChan(0)

		Convey("Then it receives events in order", func() {
			So(svc.JoinQueue(ctx, "p1", "Alice", 1000), ShouldBeNil)
			So(svc.LeaveQueue(ctx, "p1"), ShouldBeNil)
			first := <-ch
			second := <-ch
			So(first.Kind, ShouldEqual, model.KindPlayerJoinedQueue)
			So(second.Kind, ShouldEqual, model.KindPlayerLeftQueue)
			So(second.Seq, ShouldBeGreaterThan, first.Seq)
			unsubscribe()
		})

		Convey("When the service is closed", func() {
			svc.Close(ctx)

			Convey("Then the channel is closed and joins are refused", func() {
				_, ok := <-ch
				So(ok, ShouldBeFalse)
				So(errors.Is(svc.JoinQueue(ctx, "p1", "Alice", 1000), service.ErrClosed), ShouldBeTrue)
				So(errors.Is(svc.Start(ctx), service.ErrClosed), ShouldBeTrue)
			})
		})
	})

	Convey("Given status notices debounced on the real clock", t, func() {
		svc := service.New(service.WithStatusDebounce(20 * time.Millisecond))
		ch, unsubscribe := svc.SubscribeChan(16)
		defer unsubscribe()

		for i := 0; i < 3; i++ {
			So(svc.JoinQueue(ctx, fmt.Sprintf("p%d", i), "player", 1000), ShouldBeNil)
		}

		Convey("Then a burst of joins produces one coalesced notice", func() {
			var status []string
			deadline := time.After(2 * time.Second)
		loop:
			for {
				select {
				case e := <-ch:
					if e.Kind == model.KindStatusChanged {
						status = append(status, e.Message)
						break loop
					}
				case <-deadline:
					break loop
				}
			}
			So(status, ShouldResemble, []string{"3 players searching"})
		})
	})
}
