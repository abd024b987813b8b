// Package runstore records training runs and their per-strategy evaluations
// in SQLite so past runs can be listed and inspected from the CLI.
//
// The schema is embedded and versioned. A database written by a different
// schema version is rejected rather than migrated; delete the file to start
// over.
package runstore
