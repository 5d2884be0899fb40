package httpapi

import "errors"

// ErrMissingDependency is returned by New when a required component is nil.
var ErrMissingDependency = errors.New("httpapi: missing dependency")

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// ValidationErrors and Warnings are set when a request was rejected by
	// validation.
	ValidationErrors []string `json:"validationErrors,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Client-facing messages.
const (
	msgStoryMissing     = "Original story not found or not provided"
	msgValidationFailed = "Validation failed"
	msgRateLimited      = "Rate limit exceeded. Please try again later."
	msgRegenerateFailed = "Failed to regenerate content"
	msgUnavailable      = "Regeneration is not configured"
	msgBadBody          = "Invalid request body"
	msgStoryIDRequired  = "storyId is required"
	msgProfileNotFound  = "No character profile for story"
	msgCacheDisabled    = "Result cache is not configured"
)
