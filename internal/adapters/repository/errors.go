package repository

import "errors"

// Sentinel kinds for queue store errors.
var (
	ErrDuplicateParticipant = errors.New("participant already queued")
	ErrNotInQueue           = errors.New("participant not in queue")
	ErrQueueFull            = errors.New("queue is full")
)
