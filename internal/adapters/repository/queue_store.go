package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/okian/matchq/internal/domain/model"
	"github.com/okian/matchq/pkg/metrics"
)

// queueKey orders entries by enqueue instant, then by arrival sequence so two
// joins stamped with the same instant keep their arrival order.
type queueKey struct {
	enqueuedAt int64
	seq        uint64
}

func compareKeys(a, b interface{}) int {
	ka, kb := a.(queueKey), b.(queueKey)
	switch {
	case ka.enqueuedAt < kb.enqueuedAt:
		return -1
	case ka.enqueuedAt > kb.enqueuedAt:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// QueueStore is an in-memory Store backed by a red-black tree for ordering
// and a map for id lookups.
type QueueStore struct {
	mu       sync.RWMutex
	order    *treemap.Map // queueKey -> model.Participant
	index    map[string]queueKey
	seq      uint64
	capacity int
}

var _ Store = (*QueueStore)(nil)

// NewQueueStore creates an empty store.
func NewQueueStore(opts ...Option) *QueueStore {
	s := &QueueStore{
		order: treemap.NewWith(compareKeys),
		index: make(map[string]queueKey),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join admits p.
func (s *QueueStore) Join(_ context.Context, p model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[p.ID]; ok {
		return fmt.Errorf("join %q: %w", p.ID, ErrDuplicateParticipant)
	}
	if s.capacity > 0 && len(s.index) >= s.capacity {
		return fmt.Errorf("join %q: %w", p.ID, ErrQueueFull)
	}

	s.seq++
	key := queueKey{enqueuedAt: p.EnqueuedAt.UnixNano(), seq: s.seq}
	s.order.Put(key, p)
	s.index[p.ID] = key
	metrics.UpdateQueueSize(len(s.index))
	return nil
}

// Leave removes id.
func (s *QueueStore) Leave(_ context.Context, id string) (model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.removeLocked(id)
	if !ok {
		return model.Participant{}, fmt.Errorf("leave %q: %w", id, ErrNotInQueue)
	}
	metrics.UpdateQueueSize(len(s.index))
	return p, nil
}

// Remove deletes every present id in one critical section.
func (s *QueueStore) Remove(_ context.Context, ids ...string) []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]model.Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.removeLocked(id); ok {
			removed = append(removed, p)
		}
	}
	metrics.UpdateQueueSize(len(s.index))
	return removed
}

func (s *QueueStore) removeLocked(id string) (model.Participant, bool) {
	key, ok := s.index[id]
	if !ok {
		return model.Participant{}, false
	}
	v, _ := s.order.Get(key)
	s.order.Remove(key)
	delete(s.index, id)
	return v.(model.Participant), true
}

// Snapshot returns the queue oldest first.
func (s *QueueStore) Snapshot(_ context.Context) []model.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Participant, 0, s.order.Size())
	it := s.order.Iterator()
	for it.Next() {
		out = append(out, it.Value().(model.Participant))
	}
	return out
}

// Expired walks from the oldest entry and stops at the first one still in time.
func (s *QueueStore) Expired(_ context.Context, now time.Time, maxWait time.Duration) []model.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Participant
	it := s.order.Iterator()
	for it.Next() {
		p := it.Value().(model.Participant)
		if p.WaitTime(now) <= maxWait {
			break
		}
		out = append(out, p)
	}
	return out
}

// Get returns the participant with id.
func (s *QueueStore) Get(_ context.Context, id string) (model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.index[id]
	if !ok {
		return model.Participant{}, fmt.Errorf("get %q: %w", id, ErrNotInQueue)
	}
	v, _ := s.order.Get(key)
	return v.(model.Participant), nil
}

// Position returns the zero-based queue position of id.
func (s *QueueStore) Position(_ context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.index[id]
	if !ok {
		return 0, fmt.Errorf("position %q: %w", id, ErrNotInQueue)
	}
	pos := 0
	it := s.order.Iterator()
	for it.Next() {
		if compareKeys(it.Key(), key) == 0 {
			return pos, nil
		}
		pos++
	}
	// index and order disagree; should not happen
	return 0, fmt.Errorf("position %q: %w", id, ErrNotInQueue)
}

// Len returns the number of queued participants.
func (s *QueueStore) Len(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}
