package regen

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/regenops/validate"
)

// Sentinel errors for regeneration.
var (
	// ErrNilStory is returned when no story document is supplied.
	ErrNilStory = errors.New("regen: story is nil")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("regen: validation failed")

	// ErrMissingDependency is returned by New when a required collaborator
	// is nil.
	ErrMissingDependency = errors.New("regen: missing dependency")

	// ErrEmptyResult is returned when the generator produced no content
	// that could be merged.
	ErrEmptyResult = errors.New("regen: generator returned no content")

	// ErrInvalidEndpoint is returned for an unusable generator URL.
	ErrInvalidEndpoint = errors.New("regen: invalid generator endpoint")

	// ErrMalformedResponse is returned when the generator answer cannot be
	// decoded.
	ErrMalformedResponse = errors.New("regen: malformed generator response")

	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("regen: upstream generator error")
)

// ValidationError rejects a request. It carries the full verdict so callers
// can report every problem at once.
type ValidationError struct {
	Result validate.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("regen: validation failed: %s", strings.Join(e.Result.Errors, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RateLimited reports whether the rate limit was among the failures.
func (e *ValidationError) RateLimited() bool {
	return e.Result.RateLimited()
}

// UpstreamError is a non-2xx answer from the generation service.
type UpstreamError struct {
	StatusCode int
	Message    string

	// RetryAfter is the delay the upstream asked for, if any.
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("regen: upstream generator returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("regen: upstream generator returned status %d: %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Temporary reports whether retrying may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
