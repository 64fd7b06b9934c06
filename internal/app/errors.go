package service

import (
	"errors"

	"github.com/okian/matchq/internal/adapters/repository"
	"github.com/okian/matchq/internal/domain/matchmaking"
)

// Sentinel errors returned by the Service. The aliases let callers match
// store and configuration failures without importing those packages.
var (
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrClosed             = errors.New("service closed")

	ErrDuplicateParticipant = repository.ErrDuplicateParticipant
	ErrNotInQueue           = repository.ErrNotInQueue
	ErrQueueFull            = repository.ErrQueueFull
	ErrInvalidConfiguration = matchmaking.ErrInvalidConfiguration
)
