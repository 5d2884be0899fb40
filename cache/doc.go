// Package cache short-circuits repeated regeneration requests.
//
// A RequestKey describes the semantic shape of a request; DeriveKey turns it
// into a stable identity string that ignores page-number order and parameter
// key order. RegenCache keeps successful results for a fixed TTL in a bounded
// in-memory map and mirrors the live set to a persist.Store on a best-effort
// basis. Middleware layers execute-on-miss with single-flight de-duplication
// on top of any Cache.
package cache
