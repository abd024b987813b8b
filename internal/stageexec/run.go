// Package stageexec runs one pipeline stage with uniform logging, timing and
// error wrapping.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"genrecast/internal/logging"
	"genrecast/internal/metrics"
	"genrecast/internal/stage"
)

// Func is the body of a stage. It receives a logger already carrying the
// stage and run fields.
type Func func(ctx context.Context, logger *slog.Logger) error

// Run executes fn as the named stage. Failures are logged with their error
// kind, recorded in the stage duration histogram, and returned wrapped with
// the stage name. Nothing is retried.
func Run(ctx context.Context, logger *slog.Logger, name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("stage %s has no body", name)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}

	stageCtx := stage.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, logger)
	stageLogger.Debug("stage started")

	start := time.Now()
	err := runGuarded(stageCtx, stageLogger, name, fn)
	elapsed := time.Since(start)
	metrics.ObserveStage(name, elapsed, err)

	if err != nil {
		stageLogger.Error("stage failed",
			logging.ErrorKind(err),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return fmt.Errorf("%s stage: %w", name, err)
	}
	stageLogger.Info("stage completed", logging.Duration("elapsed", elapsed))
	return nil
}

// runGuarded converts a panic inside a stage body into an error.
func runGuarded(ctx context.Context, logger *slog.Logger, name string, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", name, r)
		}
	}()
	return fn(ctx, logger)
}
