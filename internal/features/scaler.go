// Package features standardizes numeric feature columns and persists the
// fitted statistics so prediction replays the identical scaling.
package features

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"genrecast/internal/artifact"
	"genrecast/internal/dataset"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
)

const stageName = "transform"

// Scaler holds per-column centring and scaling statistics keyed by column
// name. Scales use the population standard deviation; a zero-variance column
// gets a scale of 1 so it maps to 0 instead of dividing by zero.
type Scaler struct {
	Columns []string
	Means   []float64
	Scales  []float64
}

// FitScaler computes statistics for every column of m.
func FitScaler(m *dataset.Matrix) (*Scaler, error) {
	if m.Rows() == 0 {
		return nil, stage.Wrap(stage.ErrValidation, stageName, "fit", "no training rows", nil)
	}
	s := &Scaler{
		Columns: append([]string(nil), m.Columns...),
		Means:   make([]float64, m.Cols()),
		Scales:  make([]float64, m.Cols()),
	}
	column := make([]float64, m.Rows())
	for j := range m.Columns {
		for i, row := range m.Data {
			column[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(column, nil)
		scale := math.Sqrt(variance)
		if scale == 0 || math.IsNaN(scale) {
			scale = 1
		}
		s.Means[j] = mean
		s.Scales[j] = scale
	}
	return s, nil
}

// Transform standardizes m. Columns are matched by name; a different column
// set is stage.ErrContract.
func (s *Scaler) Transform(m *dataset.Matrix) (*dataset.Matrix, error) {
	aligned, err := m.Align(s.Columns)
	if err != nil {
		return nil, stage.Wrap(stage.ErrContract, stageName, "transform", "feature columns differ from fit", err)
	}
	data := make([][]float64, aligned.Rows())
	for i, row := range aligned.Data {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = (v - s.Means[j]) / s.Scales[j]
		}
		data[i] = out
	}
	return &dataset.Matrix{Columns: append([]string(nil), s.Columns...), Data: data}, nil
}

// Transformer fits and replays a Scaler through the artifact store.
type Transformer struct {
	store  *artifact.Store
	logger *slog.Logger
}

// NewTransformer constructs a Transformer persisting to store.
func NewTransformer(store *artifact.Store, logger *slog.Logger) *Transformer {
	return &Transformer{store: store, logger: logging.NewComponentLogger(logger, stageName)}
}

// Fit learns statistics from the training features, persists them, and
// returns the standardized matrix with the artifact path.
func (t *Transformer) Fit(m *dataset.Matrix) (*dataset.Matrix, string, error) {
	scaler, err := FitScaler(m)
	if err != nil {
		return nil, "", err
	}
	path, err := t.store.Save(artifact.KindScaler, scaler)
	if err != nil {
		return nil, "", fmt.Errorf("%s: save scaler: %w", stageName, err)
	}
	out, err := scaler.Transform(m)
	if err != nil {
		return nil, "", err
	}
	t.logger.Info("feature scaler fitted",
		logging.Int("columns", len(scaler.Columns)),
		logging.Int("rows", m.Rows()),
		logging.String("artifact", path),
	)
	return out, path, nil
}

// Transform loads the persisted statistics and applies them to m. A missing
// artifact is stage.ErrNotFitted.
func (t *Transformer) Transform(m *dataset.Matrix) (*dataset.Matrix, error) {
	scaler, err := t.Load()
	if err != nil {
		return nil, err
	}
	return scaler.Transform(m)
}

// Load reads the persisted Scaler.
func (t *Transformer) Load() (*Scaler, error) {
	var scaler Scaler
	if err := t.store.Load(artifact.KindScaler, &scaler); err != nil {
		return nil, err
	}
	return &scaler, nil
}
