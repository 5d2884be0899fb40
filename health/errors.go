package health

import "errors"

var (
	// ErrCheckTimeout is recorded on results whose checker missed the
	// aggregator deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrCheckerNotFound is returned for an unknown checker name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
