// Package health reports whether regend and its collaborators are usable.
//
// Checkers cover the persistence store, the regeneration cache fill level,
// circuit breakers guarding the generator and the store, and process
// memory. An Aggregator runs them concurrently under one deadline and
// folds the results into an overall Status:
//
//	agg := health.NewAggregator(5 * time.Second)
//	agg.Register(health.StoreChecker(store))
//	agg.Register(health.CacheChecker(regenCache, policy.MaxEntries))
//	report := agg.CheckAll(ctx)
//
// A failing store only degrades the service: the cache, validator and
// tracker keep working from memory. LivenessHandler, ReadinessHandler and
// DetailedHandler expose the report over HTTP.
package health
