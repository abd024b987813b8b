// Package ingestion reads the raw genre dataset, checks its schema, and writes
// the cleaned snapshot.
package ingestion

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"genrecast/internal/dataset"
	"genrecast/internal/fileutil"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
)

const stageName = "ingestion"

// MissingColumnsError lists expected columns absent from the raw header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

// Unwrap classifies the error as a schema failure.
func (e *MissingColumnsError) Unwrap() error { return stage.ErrSchema }

// Loader owns the raw and processed dataset locations.
type Loader struct {
	rawPath       string
	processedPath string
	logger        *slog.Logger
}

// NewLoader constructs a Loader for explicit paths.
func NewLoader(rawPath, processedPath string, logger *slog.Logger) *Loader {
	return &Loader{
		rawPath:       rawPath,
		processedPath: processedPath,
		logger:        logging.NewComponentLogger(logger, stageName),
	}
}

// Load reads the raw dataset. A missing file is stage.ErrNotFound.
func (l *Loader) Load() (*dataset.Frame, error) {
	file, err := os.Open(l.rawPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, stage.Wrap(stage.ErrNotFound, stageName, "load", "raw data file not found at "+l.rawPath, err)
		}
		return nil, fmt.Errorf("%s: load: open raw data: %w", stageName, err)
	}
	defer file.Close()

	frame, err := dataset.ReadCSV(file)
	if err != nil {
		return nil, stage.Wrap(stage.ErrValidation, stageName, "load", "parse "+l.rawPath, err)
	}
	l.logger.Info("raw dataset loaded",
		logging.String("path", l.rawPath),
		logging.Int("rows", frame.Len()),
		logging.Int("columns", len(frame.Columns)),
	)
	return frame, nil
}

// Validate checks that every expected column is present. Extra columns are
// tolerated and header order is not significant.
func (l *Loader) Validate(frame *dataset.Frame, expected []string) error {
	present := make(map[string]struct{}, len(frame.Columns))
	for _, name := range frame.Columns {
		present[strings.TrimSpace(name)] = struct{}{}
	}
	var missing []string
	for _, name := range expected {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		err := &MissingColumnsError{Columns: missing}
		l.logger.Error("schema validation failed", logging.Strings("missing_columns", missing))
		return fmt.Errorf("%s: validate: %w", stageName, err)
	}
	l.logger.Debug("schema validated", logging.Int("expected_columns", len(expected)))
	return nil
}

// Save writes the snapshot atomically, creating parent directories. Running
// it again overwrites the previous snapshot.
func (l *Loader) Save(frame *dataset.Frame) error {
	err := fileutil.WriteAtomic(l.processedPath, 0o644, func(w io.Writer) error {
		return dataset.WriteCSV(w, frame)
	})
	if err != nil {
		return fmt.Errorf("%s: save %s: %w", stageName, l.processedPath, err)
	}
	l.logger.Info("processed dataset saved",
		logging.String("path", l.processedPath),
		logging.Int("rows", frame.Len()),
	)
	return nil
}

// ProcessedPath returns the snapshot location.
func (l *Loader) ProcessedPath() string { return l.processedPath }
