// Package artifact persists the fitted state of every learning stage under a
// single artifacts root.
//
// Each artifact kind has a stable file name. Files are gob envelopes written
// with temp-file-and-rename, so a reader sees either the previous or the new
// content. Training writes manifest.json last; it names the run and records a
// SHA-256 digest per artifact, and the replay path refuses to mix artifacts
// whose digests disagree with it. An advisory flock on the root serializes a
// training run (exclusive) against prediction traffic (shared).
package artifact
