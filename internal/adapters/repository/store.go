// Package repository holds the authoritative set of waiting participants.
package repository

import (
	"context"
	"time"

	"github.com/okian/matchq/internal/domain/model"
)

// Store provides read/write access to the waiting queue.
type Store interface {
	// Join admits p. Returns ErrDuplicateParticipant if p.ID is already queued
	// and ErrQueueFull when a capacity is set and reached.
	Join(ctx context.Context, p model.Participant) error

	// Leave removes id and returns the removed participant.
	// Returns ErrNotInQueue if id is unknown.
	Leave(ctx context.Context, id string) (model.Participant, error)

	// Remove deletes every present id atomically, returning the removed
	// participants in argument order. Unknown ids are skipped.
	Remove(ctx context.Context, ids ...string) []model.Participant

	// Snapshot returns a copy of the queue ordered by EnqueuedAt ascending,
	// ties broken by arrival.
	Snapshot(ctx context.Context) []model.Participant

	// Expired returns participants whose wait at now exceeds maxWait, oldest first.
	Expired(ctx context.Context, now time.Time, maxWait time.Duration) []model.Participant

	// Get returns the queued participant with id.
	Get(ctx context.Context, id string) (model.Participant, error)

	// Position returns the zero-based place of id in Snapshot order.
	Position(ctx context.Context, id string) (int, error)

	// Len returns the number of queued participants.
	Len(ctx context.Context) int
}
