// Package worker runs formula calculations on a pool of isolated workers.
//
// Each worker is a goroutine with its own evaluator, parsed-expression cache
// and memo. The pool and its workers exchange JSON messages only:
//
//	request:  {"type": "calculate" | "batch_calculate" | "clear_cache" | "get_stats", "id": "...", "data": ...}
//	response: {"type": "result" | "batch_result" | "error" | "stats", "id": "...", "data": ..., "error": "..."}
//
// A response echoes the id of its request. Single requests are dispatched
// round-robin; a batch goes to one worker, which evaluates it in order and
// makes each successful value visible to later requests for the same
// record. Evaluation failures come back as Results with Success false; a
// panic inside a worker becomes an error response and never takes the
// worker down.
//
// # Usage
//
//	pool := worker.NewPool(worker.DefaultConfig(), nil, logger)
//	defer pool.Terminate()
//
//	res, err := pool.ExecuteCalculation(ctx, worker.Request{
//	    RecordID:   "r1",
//	    ColumnID:   "fullName",
//	    Expression: `CONCAT(firstName, " ", lastName)`,
//	    Context:    schema.Context{Record: rec},
//	})
package worker
