// Package config loads, normalizes, and validates genrecast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GENRECAST_ARTIFACTS_DIR. The Config type centralizes every knob the training
// pipeline, the replay predictor, and the HTTP server need, so artifact roots
// and dataset locations are passed explicitly to each stage instead of living
// in package globals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
