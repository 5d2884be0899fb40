package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonwraymond/regenops/story"
)

// Fixed validation messages. Callers may match on these.
const (
	MsgStoryIDRequired      = "Story ID is required"
	MsgKindRequired         = "Regeneration type is required"
	MsgPagesRequired        = "Page numbers are required for page regeneration"
	MsgPagesPositive        = "Page numbers must be positive integers starting from 1"
	MsgDuplicatePages       = "Duplicate page numbers detected and will be ignored"
	MsgInterestsNotArray    = "Interests must be an array of strings"
	MsgInvalidInterests     = "Empty or invalid interests will be ignored"
	MsgChildNameRequired    = "Child name must be a non-empty string"
	MsgChildNameLong        = "Child name is very long and may affect story quality"
	MsgStoryNotFound        = "Story not found"
	MsgStoryIDMismatch      = "Story ID mismatch"
	MsgNoPages              = "Story has no pages to regenerate"
	MsgLongStory            = "Story is quite long. Regeneration may take longer than usual."
	MsgNoImages             = "Story currently has no images to regenerate. New images will be generated."
	MsgNoModifiedParams     = "No modified parameters provided. Story will be regenerated with the same parameters."
	MsgRateLimitUnavailable = "Unable to verify rate limits. Please avoid excessive regenerations."

	AltRegeneratePages  = "Consider regenerating specific pages instead of the entire story"
	AltRegenerateImages = "Consider regenerating images only for faster results"
)

// MsgRateLimitPrefix starts every rate-limit error.
const MsgRateLimitPrefix = "Rate limit exceeded."

func msgInvalidKind() string {
	names := make([]string, len(story.Kinds))
	for i, k := range story.Kinds {
		names[i] = string(k)
	}
	return "Invalid regeneration type. Must be one of: " + strings.Join(names, ", ")
}

func msgTooManyPages(limit int) string {
	return fmt.Sprintf("Cannot regenerate more than %d pages at once", limit)
}

func msgTooManyInterests(limit int) string {
	return fmt.Sprintf("Too many interests specified. Only the first %d will be used.", limit)
}

func msgInvalidTheme() string {
	return "Invalid story theme. Must be one of: " + strings.Join(story.Themes, ", ")
}

func msgInvalidLength() string {
	return "Invalid story length. Must be one of: " + strings.Join(story.Lengths, ", ")
}

func msgChildAge() string {
	return fmt.Sprintf("Child age must be an integer between %d and %d", story.MinChildAge, story.MaxChildAge)
}

func msgStoryTooNew(minutes float64) string {
	return fmt.Sprintf("Story is very new (%s minutes old). Consider waiting before regenerating.",
		strconv.FormatFloat(minutes, 'f', -1, 64))
}

func msgMissingPages(pages []int, max int) string {
	return fmt.Sprintf("Page numbers %s do not exist. Story has %d pages.", joinInts(pages), max)
}

func msgPagesWithoutImages(pages []int) string {
	return fmt.Sprintf("Pages %s currently have no images.", joinInts(pages))
}

func msgRateLimitExceeded(limit int) string {
	return fmt.Sprintf("%s Maximum %d regenerations per hour allowed.", MsgRateLimitPrefix, limit)
}

func msgApproachingRateLimit(count, limit int) string {
	return fmt.Sprintf("Approaching rate limit (%d/%d per hour).", count, limit)
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
