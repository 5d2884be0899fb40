package persist

import "errors"

// Sentinel errors for persistence operations.
var (
	// ErrNotFound is returned by Load when no value is stored under the key.
	ErrNotFound = errors.New("persist: not found")

	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("persist: key is invalid")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("persist: store is closed")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("persist: unknown backend")
)
