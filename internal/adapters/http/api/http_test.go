package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchq/internal/adapters/http/api"
	service "github.com/okian/matchq/internal/app"
	"github.com/okian/matchq/internal/domain/model"
	"github.com/okian/matchq/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newMux() (*http.ServeMux, *service.Service) {
	svc := service.New(service.WithStatusDebounce(0))
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return mux, svc
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestQueueRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux()
		Reset(func() { svc.Close(context.Background()) })

		Convey("When a participant joins", func() {
			w := do(mux, http.MethodPost, "/queue", `{"id":"p1","display_name":"Alice","skill_rating":1200}`)

			Convey("Then the join is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["status"], ShouldEqual, "queued")
				So(svc.QueueSize(context.Background()), ShouldEqual, 1)
			})

			Convey("Then the same id is rejected with a conflict", func() {
				dup := do(mux, http.MethodPost, "/queue", `{"id":"p1","display_name":"Bob","skill_rating":1500}`)
				So(dup.Code, ShouldEqual, http.StatusConflict)
				So(decode(dup)["code"], ShouldEqual, "duplicate_participant")
			})

			Convey("Then the queue lists it", func() {
				list := do(mux, http.MethodGet, "/queue", "")
				So(list.Code, ShouldEqual, http.StatusOK)
				body := decode(list)
				So(body["size"], ShouldEqual, 1.0)
				So(body["participants"], ShouldHaveLength, 1)
			})

			Convey("Then an estimate is available", func() {
				est := do(mux, http.MethodGet, "/queue/p1/estimate", "")
				So(est.Code, ShouldEqual, http.StatusOK)
				So(decode(est)["estimated_wait_ms"], ShouldEqual, 1000.0)
			})

			Convey("Then leaving works once", func() {
				So(do(mux, http.MethodDelete, "/queue/p1", "").Code, ShouldEqual, http.StatusOK)
				again := do(mux, http.MethodDelete, "/queue/p1", "")
				So(again.Code, ShouldEqual, http.StatusNotFound)
				So(decode(again)["code"], ShouldEqual, "not_in_queue")
			})
		})

		Convey("When the request body is incomplete", func() {
			missing := do(mux, http.MethodPost, "/queue", `{"id":"p1","display_name":"Alice"}`)
			broken := do(mux, http.MethodPost, "/queue", `{"id":`)

			Convey("Then it is a bad request", func() {
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(missing)["message"], ShouldContainSubstring, "missing skill_rating")
				So(broken.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When asking about an unknown participant", func() {
			w := do(mux, http.MethodGet, "/queue/ghost/estimate", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When using an unsupported method", func() {
			So(do(mux, http.MethodPatch, "/queue", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/queue/p1", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestConfigAndSchedulerRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux()
		Reset(func() { svc.Close(context.Background()) })

		Convey("When reading the configuration", func() {
			w := do(mux, http.MethodGet, "/config", "")

			Convey("Then the defaults are returned in seconds", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["min_players_per_match"], ShouldEqual, 2.0)
				So(body["max_queue_time_seconds"], ShouldEqual, 120.0)
			})
		})

		Convey("When a partial update is sent", func() {
			w := do(mux, http.MethodPut, "/config", `{"base_skill_tolerance":300}`)

			Convey("Then only that field changes", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(svc.Config().BaseSkillTolerance, ShouldEqual, 300)
				So(svc.Config().MaxPlayersPerMatch, ShouldEqual, 4)
			})
		})

		Convey("When an invalid update is sent", func() {
			w := do(mux, http.MethodPut, "/config", `{"min_players_per_match":1}`)

			Convey("Then it is rejected and nothing changes", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "invalid_configuration")
				So(svc.Config().MinPlayersPerMatch, ShouldEqual, 2)
			})
		})

		Convey("When the scheduler is started and stopped", func() {
			start := do(mux, http.MethodPost, "/scheduler/start", "")
			running := svc.Running()
			stop := do(mux, http.MethodPost, "/scheduler/stop", "")

			Convey("Then the state follows", func() {
				So(start.Code, ShouldEqual, http.StatusOK)
				So(decode(start)["running"], ShouldEqual, true)
				So(running, ShouldBeTrue)
				So(stop.Code, ShouldEqual, http.StatusOK)
				So(decode(stop)["running"], ShouldEqual, false)
				So(decode(do(mux, http.MethodGet, "/scheduler", ""))["running"], ShouldEqual, false)
			})
		})

		Convey("When reading stats and metrics", func() {
			stats := do(mux, http.MethodGet, "/stats", "")
			health := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then both respond", func() {
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(decode(stats), ShouldContainKey, "queueLength")
				So(decode(stats), ShouldContainKey, "uptimeSeconds")
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, "matchq_")
			})
		})

		Convey("When a client asks for JSON health", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set("Accept", "application/json")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it reports status and scheduler state", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["status"], ShouldEqual, "ok")
				So(body["running"], ShouldEqual, false)
			})
		})
	})
}

func TestEventStream(t *testing.T) {
	Convey("Given a live server with a websocket client", t, func() {
		mux, svc := newMux()
		srv := httptest.NewServer(mux)
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/stream"

		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		Reset(func() {
			_ = conn.Close()
			if resp != nil {
				_ = resp.Body.Close()
			}
			svc.Close(context.Background())
			srv.Close()
		})

		Convey("When a participant joins", func() {
			So(svc.JoinQueue(context.Background(), "p1", "Alice", 1000), ShouldBeNil)

			Convey("Then the event arrives as a JSON frame", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				var e model.Event
				So(conn.ReadJSON(&e), ShouldBeNil)
				So(e.Kind, ShouldEqual, model.KindPlayerJoinedQueue)
				So(e.Participant.ID, ShouldEqual, "p1")
			})
		})

		Convey("When the service closes", func() {
			svc.Close(context.Background())

			Convey("Then the server closes the stream", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, _, err := conn.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseGoingAway), ShouldBeTrue)
			})
		})
	})
}
