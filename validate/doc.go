// Package validate decides whether a regeneration request may proceed.
//
// ValidateRequest runs four independent checks (request structure, story
// state, kind-specific constraints and the per-story rate limit) and
// aggregates every error and warning into one Result, so callers see all
// problems with a request at once. Blocking problems are errors; quality,
// cost and consistency advisories are warnings.
//
// The rate limit is a rolling per-story log of regeneration times, kept in
// memory and mirrored to a persist.Store. An unreadable store degrades to a
// warning, never to a failed validation.
package validate
