package consistency

import "errors"

// Sentinel errors for tracker operations.
var (
	// ErrNilStory is returned when a nil document is tracked.
	ErrNilStory = errors.New("consistency: story is nil")

	// ErrEmptyStoryID is returned when a document has no identifier.
	ErrEmptyStoryID = errors.New("consistency: story id is required")
)
