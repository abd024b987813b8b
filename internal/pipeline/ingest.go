package pipeline

import (
	"context"
	"log/slog"

	"genrecast/internal/dataset"
	"genrecast/internal/ingestion"
	"genrecast/internal/logging"
	"genrecast/internal/stageexec"
)

// IngestResult describes a standalone ingestion run.
type IngestResult struct {
	RawRows       int
	Rows          int
	Columns       []string
	ProcessedPath string
}

// Ingest loads, validates, cleans, and snapshots the raw dataset without
// fitting anything. Re-running on the same input rewrites an identical file.
func (p *Pipeline) Ingest(ctx context.Context) (*IngestResult, error) {
	logger := logging.WithContext(ctx, p.logger)
	loader := ingestion.NewLoader(p.cfg.Paths.RawData, p.cfg.Paths.ProcessedData, logger)
	result := &IngestResult{ProcessedPath: loader.ProcessedPath()}

	var frame *dataset.Frame
	err := stageexec.Run(ctx, logger, StageIngest, func(context.Context, *slog.Logger) error {
		var err error
		frame, err = p.load(loader)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.RawRows = frame.Len()

	err = stageexec.Run(ctx, logger, StageClean, func(_ context.Context, stageLogger *slog.Logger) error {
		cleaned, err := p.clean(frame, loader, stageLogger)
		if err != nil {
			return err
		}
		result.Rows = cleaned.Len()
		result.Columns = cleaned.Columns
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
