// Package preflight provides readiness checks for the filesystem paths
// genrecast depends on.
//
// These checks run in two contexts:
//   - The train and ingest commands call RunAll before touching data and
//     refuse to start when a required path is unusable.
//   - The CLI "genrecast status" command prints every Result so operators can
//     see which path is misconfigured.
//
// Checks never create directories; config.EnsureDirectories does that.
package preflight
