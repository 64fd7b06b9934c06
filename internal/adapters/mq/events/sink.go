// Package events fans queue notifications out to subscribers in publish order.
package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/okian/matchq/internal/adapters/mq/queue"
	"github.com/okian/matchq/internal/domain/model"
	"github.com/okian/matchq/pkg/logger"
	"github.com/okian/matchq/pkg/metrics"
)

const defaultSubscriberBuffer = 256

// Handler receives events synchronously on the publisher's goroutine.
// Handlers must not call back into the component that publishes.
type Handler func(ctx context.Context, e model.Event)

type subscriber struct {
	id     uint64
	handle Handler
	buffer *queue.InMemoryQueue // nil for plain handlers
}

// Sink delivers every published event to every subscriber in subscription
// order before Publish returns.
type Sink struct {
	mu     sync.RWMutex
	subs   []*subscriber
	nextID uint64
	closed bool

	seq    atomic.Uint64
	clock  clock.Clock
	logger logger.Logger
}

// NewSink creates a sink with no subscribers.
func NewSink(opts ...Option) *Sink {
	s := &Sink{
		clock:  clock.New(),
		logger: logger.Get().Named("events"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers h and returns a function that removes it.
func (s *Sink) Subscribe(h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	return s.add(&subscriber{handle: h})
}

// SubscribeChan registers a buffered subscriber. Events that do not fit in the
// buffer are dropped and counted rather than blocking the publisher. The
// channel is closed on unsubscribe or when the sink closes.
func (s *Sink) SubscribeChan(buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(buffer))
	sub := &subscriber{buffer: q}
	sub.handle = func(ctx context.Context, e model.Event) {
		if !q.Enqueue(ctx, e) && !q.IsClosed() {
			metrics.RecordEventDropped()
			s.logger.Warn(ctx, "subscriber buffer full, dropping event",
				logger.Int("subscriber", int(sub.id)),
				logger.String("kind", string(e.Kind)),
				logger.Int("capacity", q.Capacity()),
			)
		}
	}
	return q.Dequeue(), s.add(sub)
}

func (s *Sink) add(sub *subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if sub.buffer != nil {
			_ = sub.buffer.Close()
		}
		return func() {}
	}

	s.nextID++
	sub.id = s.nextID
	s.subs = append(s.subs, sub)
	metrics.UpdateSubscribers(len(s.subs))

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(sub.id) })
	}
}

func (s *Sink) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.id != id {
			continue
		}
		s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
		if sub.buffer != nil {
			_ = sub.buffer.Close()
		}
		break
	}
	metrics.UpdateSubscribers(len(s.subs))
}

// Publish stamps e with the next sequence number and the current time, then
// hands it to each subscriber in order. The stamped event is returned.
func (s *Sink) Publish(ctx context.Context, e model.Event) model.Event { //nolint:gocritic // hugeParam: events are values
	e.Seq = s.seq.Add(1)
	if e.At.IsZero() {
		e.At = s.clock.Now()
	}

	s.mu.RLock()
	subs := make([]*subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		s.deliver(ctx, sub, e)
	}
	metrics.RecordEventPublished(string(e.Kind))
	return e
}

func (s *Sink) deliver(ctx context.Context, sub *subscriber, e model.Event) { //nolint:gocritic // hugeParam: events are values
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "event subscriber panicked",
				logger.Int("subscriber", int(sub.id)),
				logger.String("kind", string(e.Kind)),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	sub.handle(ctx, e)
}

// Subscribers returns the number of active subscribers.
func (s *Sink) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Close drops all subscribers and closes buffered channels.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, sub := range s.subs {
		if sub.buffer != nil {
			_ = sub.buffer.Close()
		}
	}
	s.subs = nil
	metrics.UpdateSubscribers(0)
}
