// Package pipeline wires the fit stages into the fixed training order and
// replays their persisted state for prediction.
//
// Training holds the artifact write lock for its whole duration and writes the
// manifest last. Prediction holds the read lock, requires the manifest, and
// loads every artifact digest-checked against it, so a prediction never mixes
// state from two training runs.
package pipeline
