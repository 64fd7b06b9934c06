package matchmaking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchq/internal/domain/model"
)

// Store is the part of the queue store the former reads and mutates.
type Store interface {
	// Snapshot returns waiting participants, oldest first.
	Snapshot(ctx context.Context) []model.Participant
	// Remove deletes ids atomically and returns the removed participants.
	Remove(ctx context.Context, ids ...string) []model.Participant
}

// MatchHandler receives each accepted match synchronously, after its members
// left the store and before the next anchor is tried.
type MatchHandler func(ctx context.Context, m model.Match)

// Former selects compatible subsets of the queue. The algorithm is greedy and
// deterministic for a given snapshot and clock reading.
type Former struct {
	cfg    Config
	policy Policy
	newID  func() string
}

// FormerOption applies a configuration option to the Former.
type FormerOption func(*Former)

// WithIDGenerator overrides how match ids are minted.
func WithIDGenerator(fn func() string) FormerOption {
	return func(f *Former) {
		if fn != nil {
			f.newID = fn
		}
	}
}

// NewFormer creates a former for cfg. cfg is expected to be valid.
func NewFormer(cfg Config, opts ...FormerOption) *Former {
	f := &Former{
		cfg:    cfg,
		policy: NewPolicy(cfg),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the compatibility policy in use.
func (f *Former) Policy() Policy { return f.policy }

// Propose tries to build one match around the oldest participant in snapshot.
// snapshot must be ordered oldest first. Fillers are scanned newest first so
// long-waiters stay available as anchors for later attempts.
func (f *Former) Propose(snapshot []model.Participant, now time.Time) (model.Match, bool) {
	if len(snapshot) < f.cfg.MinPlayersPerMatch {
		return model.Match{}, false
	}

	anchor := snapshot[0]
	tolerance := f.policy.EffectiveTolerance(anchor.WaitTime(now))

	members := make([]model.Participant, 0, f.cfg.MaxPlayersPerMatch)
	members = append(members, anchor)
	for i := len(snapshot) - 1; i >= 1 && len(members) < f.cfg.MaxPlayersPerMatch; i-- {
		if IsCompatible(snapshot[i], members, tolerance) {
			members = append(members, snapshot[i])
		}
	}

	if len(members) < f.cfg.MinPlayersPerMatch {
		return model.Match{}, false
	}

	return model.Match{
		MatchID:            f.newID(),
		Members:            members,
		AverageSkillRating: model.AverageSkill(members),
		Tolerance:          tolerance,
		FormedAt:           now,
	}, true
}

// Cycle forms matches until the oldest remaining participant cannot anchor one.
// Each accepted match is removed from store and handed to onMatch before the
// next attempt. The formed matches are returned in formation order.
// Callers must keep other writers off store for the duration of the cycle.
func (f *Former) Cycle(ctx context.Context, store Store, now time.Time, onMatch MatchHandler) []model.Match {
	var formed []model.Match
	for {
		m, ok := f.Propose(store.Snapshot(ctx), now)
		if !ok {
			return formed
		}

		store.Remove(ctx, m.MemberIDs()...)
		if onMatch != nil {
			onMatch(ctx, m)
		}
		formed = append(formed, m)
	}
}
