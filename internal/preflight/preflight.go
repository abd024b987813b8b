package preflight

import (
	"fmt"
	"path/filepath"
	"strings"

	"genrecast/internal/config"
	"genrecast/internal/stage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the path checks for cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckFileReadable("Raw dataset", cfg.Paths.RawData),
		CheckDirectoryAccess("Processed directory", filepath.Dir(cfg.Paths.ProcessedData)),
		CheckDirectoryAccess("Artifacts directory", cfg.Paths.ArtifactsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Run store directory", filepath.Dir(cfg.Paths.RunStore)),
	}
}

// Failed returns an error naming every failed result, or nil. Missing inputs
// are reported as stage.ErrNotFound so callers can classify them.
func Failed(results []Result) error {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return stage.Wrap(stage.ErrNotFound, "preflight", "paths", strings.Join(failures, "; "), nil)
}
