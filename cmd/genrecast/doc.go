// Package main hosts the genrecast CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the training pipeline, single-record
// prediction, the HTTP prediction service, run history inspection, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
