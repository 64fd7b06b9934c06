package matchmaking

import "errors"

// Sentinel kinds for matchmaking errors.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
