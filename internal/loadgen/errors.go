package loadgen

import "errors"

// Sentinel errors for the load generator.
var (
	ErrInvalidConfig = errors.New("invalid load configuration")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrUnexpected    = errors.New("unexpected response")
)
