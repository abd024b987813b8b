package features_test

import (
	"errors"
	"math"
	"testing"

	"genrecast/internal/artifact"
	"genrecast/internal/dataset"
	"genrecast/internal/features"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
)

func trainMatrix() *dataset.Matrix {
	return &dataset.Matrix{
		Columns: []string{"tempo", "vocal", "constant"},
		Data: [][]float64{
			{100, 0.1, 5},
			{120, 0.3, 5},
			{140, 0.5, 5},
		},
	}
}

func TestFitStandardizesWithPopulationStd(t *testing.T) {
	tr := features.NewTransformer(artifact.NewStore(t.TempDir()), logging.NewNop())
	out, path, err := tr.Fit(trainMatrix())
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if path == "" {
		t.Fatal("expected artifact path")
	}
	want := math.Sqrt(1.5)
	if got := out.Data[0][0]; math.Abs(got+want) > 1e-12 {
		t.Fatalf("scaled tempo: got %v want %v", got, -want)
	}
	if got := out.Data[1][0]; got != 0 {
		t.Fatalf("scaled mean row: got %v want 0", got)
	}
}

func TestFitZeroVarianceColumnDoesNotDivideByZero(t *testing.T) {
	tr := features.NewTransformer(artifact.NewStore(t.TempDir()), logging.NewNop())
	out, _, err := tr.Fit(trainMatrix())
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	for i, row := range out.Data {
		if row[2] != 0 || math.IsNaN(row[2]) || math.IsInf(row[2], 0) {
			t.Fatalf("row %d constant column: got %v want 0", i, row[2])
		}
	}
	scaler, err := tr.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if scaler.Scales[2] != 1 {
		t.Fatalf("zero variance scale: got %v want 1", scaler.Scales[2])
	}
}

func TestTransformReplaysFittedStatistics(t *testing.T) {
	store := artifact.NewStore(t.TempDir())
	if _, _, err := features.NewTransformer(store, logging.NewNop()).Fit(trainMatrix()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	fresh := features.NewTransformer(store, logging.NewNop())
	row := dataset.Row([]string{"tempo", "vocal", "constant"}, []float64{120, 0.3, 9})
	out, err := fresh.Transform(row)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Data[0][0] != 0 || math.Abs(out.Data[0][1]) > 1e-12 || out.Data[0][2] != 4 {
		t.Fatalf("unexpected replay: %v", out.Data[0])
	}
}

func TestTransformMatchesColumnsByName(t *testing.T) {
	store := artifact.NewStore(t.TempDir())
	tr := features.NewTransformer(store, logging.NewNop())
	if _, _, err := tr.Fit(trainMatrix()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	ordered, err := tr.Transform(dataset.Row([]string{"tempo", "vocal", "constant"}, []float64{130, 0.2, 5}))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	shuffled, err := tr.Transform(dataset.Row([]string{"constant", "tempo", "vocal"}, []float64{5, 130, 0.2}))
	if err != nil {
		t.Fatalf("Transform shuffled: %v", err)
	}
	for j := range ordered.Data[0] {
		if ordered.Data[0][j] != shuffled.Data[0][j] {
			t.Fatalf("column %d differs: %v vs %v", j, ordered.Data[0], shuffled.Data[0])
		}
	}

	_, err = tr.Transform(dataset.Row([]string{"tempo", "vocal", "bpm"}, []float64{1, 2, 3}))
	if !errors.Is(err, stage.ErrContract) {
		t.Fatalf("expected contract violation, got %v", err)
	}
}

func TestTransformBeforeFitIsNotFitted(t *testing.T) {
	tr := features.NewTransformer(artifact.NewStore(t.TempDir()), logging.NewNop())
	_, err := tr.Transform(trainMatrix())
	if !errors.Is(err, stage.ErrNotFitted) {
		t.Fatalf("expected not fitted, got %v", err)
	}
}
