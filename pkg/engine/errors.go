package engine

import (
	"errors"
	"fmt"
)

// ErrTerminated is returned by every operation after Terminate.
var ErrTerminated = errors.New("calculation engine terminated")

// ErrNotInitialized is returned by operations that need a column schema
// before Initialize was called.
var ErrNotInitialized = errors.New("calculation engine not initialized")

// BatchError reports a batch that failed as a whole, for example because
// its context was cancelled between chunks.
type BatchError struct {
	BatchID   string
	Completed int
	Total     int
	Err       error
}

// Error implements error.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %s failed after %d/%d calculations: %v", e.BatchID, e.Completed, e.Total, e.Err)
}

// Unwrap returns the underlying error.
func (e *BatchError) Unwrap() error {
	return e.Err
}
