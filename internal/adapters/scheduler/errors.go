package scheduler

import "errors"

// Sentinel errors returned by the scheduler.
var (
	ErrAlreadyRunning  = errors.New("scheduler already running")
	ErrInvalidInterval = errors.New("scheduler interval must be positive")
)
