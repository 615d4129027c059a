// Package engine provides the calculation engine: the single entry point
// that ties the formula parser, the dependency graph, the calculation cache
// and the worker pool together.
//
// # Lifecycle
//
// An Engine is constructed explicitly and owned by its caller. New starts
// the worker pool and, when a cleanup schedule is configured, the cache
// janitor. Terminate stops both; every later call returns ErrTerminated.
//
//	eng, err := engine.New(engine.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	defer eng.Terminate()
//
//	if err := eng.Initialize(ctx, columns); err != nil {
//	    return err // syntax, function_not_found or circular, per column
//	}
//
// # Single Calculations
//
// Calculate consults the cache before dispatching to a worker and caches
// every successful result. Evaluate runs on the calling goroutine and
// bypasses the pool, the cache and the counters.
//
// # Batches
//
// CalculateBatch enumerates one request per (formula column, record) in
// dependency order and dispatches them in chunks of Config.ChunkSize. Chunks
// run strictly one after another; progress is reported after each chunk.
// A LOOKUP reads the record set as it was when its chunk started. Columns
// that call a lookup function start a new chunk, so they see every column
// calculated before them.
//
// RecalculateAffected drops the cached values of every column that reads
// the changed column, directly or transitively, and recomputes only those.
//
// Within a batch, records are told apart by position, so records without an
// ID, or sharing one, are calculated independently. Only records with an ID
// are cached.
package engine
