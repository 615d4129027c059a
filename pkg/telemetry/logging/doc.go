// Package logging builds the structured loggers used across the engine.
//
// # Overview
//
// Loggers are plain *slog.Logger values:
//   - JSON or text output
//   - configurable level (debug, info, warn, error)
//   - optional masking of email addresses and phone numbers, since record
//     values routinely end up in debug output
//   - batch, record and column ids carried through context.Context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
//	ctx = logging.WithLogger(ctx, logger)
//	ctx = logging.WithBatchID(ctx, batch.ID)
//	logging.FromContext(ctx).Info("chunk complete", "processed", 200)
//	// {"level":"INFO","msg":"chunk complete","batch_id":"...","processed":200}
package logging
