// Package logs tails training run log files for the CLI.
//
// It prints the last N lines with bounded memory and, in follow mode, polls
// for appended lines until the caller's context ends. Run logs are written by
// logging.OpenRunLog while a training run is in progress, so following a run
// log shows stage progress live.
package logs
