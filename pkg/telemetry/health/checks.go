package health

import (
	"context"
	"errors"
	"fmt"

	"tabula-hq/formula/pkg/schema"
	"tabula-hq/formula/pkg/worker"
)

// Engine is the part of the calculation engine the checks inspect.
type Engine interface {
	Terminated() bool
	Columns() []schema.Column
	WorkerStats(ctx context.Context) ([]worker.Stats, error)
}

// SchemaCheck fails until a column schema has been loaded.
func SchemaCheck(e Engine) CheckFunc {
	return func(ctx context.Context) error {
		if e.Terminated() {
			return errors.New("engine terminated")
		}
		if len(e.Columns()) == 0 {
			return errors.New("no column schema loaded")
		}
		return nil
	}
}

// WorkersCheck fails when any worker does not answer a stats request.
func WorkersCheck(e Engine) CheckFunc {
	return func(ctx context.Context) error {
		if e.Terminated() {
			return errors.New("engine terminated")
		}
		stats, err := e.WorkerStats(ctx)
		if err != nil {
			return fmt.Errorf("workers unresponsive: %w", err)
		}
		if len(stats) == 0 {
			return errors.New("no workers running")
		}
		return nil
	}
}
