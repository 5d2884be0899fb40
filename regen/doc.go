// Package regen coordinates a regeneration request end to end.
//
// A Service validates the request against the current story, checks the
// proposed changes against the tracked character profile, and asks a
// Generator for fresh content only when no equivalent request is cached.
// Generated content is merged into the original story:
//
//   - story: title, character description and pages are replaced
//   - images: each page takes its new image, keeping the old one when none
//     was produced
//   - page: only the requested pages change
//
// After a successful generation the merged story is tracked by the
// consistency tracker and the regeneration is recorded against the story's
// rate limit.
//
// HTTPGenerator forwards generation to an upstream service, guarded by the
// resilience package.
package regen
