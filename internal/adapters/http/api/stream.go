package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/matchq/internal/domain/model"
	"github.com/okian/matchq/pkg/logger"
)

// Stream timing constants.
const (
	defaultStreamBuffer = 256
	streamWriteWait     = 5 * time.Second
	streamPongWait      = 60 * time.Second
	streamPingPeriod    = streamPongWait * 9 / 10
)

// StreamDependencies defines the event subscription used by the stream.
type StreamDependencies interface {
	SubscribeChan(buffer int) (<-chan model.Event, func())
}

// StreamHandler serves the live event feed over a websocket.
type StreamHandler struct {
	deps     StreamDependencies
	buffer   int
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies, buffer int, l logger.Logger) *StreamHandler {
	return &StreamHandler{
		deps:   deps,
		buffer: buffer,
		logger: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleStream handles GET /events/stream. Every event is sent as one JSON
// text frame. Client messages are read and discarded so close frames and
// pongs are processed.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The subscription exists before the handshake response is sent.
	events, unsubscribe := h.deps.SubscribeChan(h.buffer)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(ctx, "websocket upgrade failed", logger.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	h.logger.Debug(ctx, "event stream opened", logger.String("remote", r.RemoteAddr))
	for {
		select {
		case <-closed:
			h.logger.Debug(ctx, "event stream closed by client", logger.String("remote", r.RemoteAddr))
			return
		case e, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "event feed closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Debug(ctx, "event stream write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
