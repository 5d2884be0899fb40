// Package persist provides the durable key-value boundary used to carry
// regeneration state across process restarts.
//
// Every regeneration component treats persistence as an optimization: a
// Store that fails (or a NoopStore in environments without durable storage)
// never changes the outcome of an in-memory operation. Implementations are
// provided for Redis, SQLite and process memory, plus a ResilientStore that
// wraps any Store with retries and a circuit breaker.
package persist
