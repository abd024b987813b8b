// Package stage defines the shared vocabulary of the training and replay
// pipelines: error markers, context helpers, and readiness reporting.
//
// Key responsibilities:
//   - A closed set of error markers plus the Wrap helper, so callers classify
//     failures with errors.Is instead of matching strings.
//   - Context helpers that stamp the stage name, run ID, and correlation ID
//     for structured logging.
//   - Health records describing whether a stage's fitted state is available.
//
// Use these helpers when adding a stage so failure reporting stays uniform
// across ingestion, fitting, and prediction.
package stage
