// Package httpapi exposes the regeneration components over HTTP with gin.
//
// Routes, all JSON:
//
//	POST   /v1/regenerate              run a regeneration
//	GET    /v1/regenerate              describe supported kinds and features
//	POST   /v1/validate                validate a request without running it
//	POST   /v1/consistency/check       score proposed character changes
//	POST   /v1/consistency/track       record a story's protagonist
//	GET    /v1/consistency/stats       profile summary
//	GET    /v1/consistency/:storyId    one character profile
//	DELETE /v1/consistency             drop every profile
//	GET    /v1/cache/stats             cache population
//	DELETE /v1/cache/:storyId          invalidate one story
//	DELETE /v1/cache                   clear the cache
//	GET    /healthz, /readyz, /health  probes
//	GET    /metrics                    Prometheus scrape, when enabled
//
// Requests that carry a story send it inline as originalStory; the server
// keeps no story storage of its own.
package httpapi
