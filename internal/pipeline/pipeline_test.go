package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"genrecast/internal/artifact"
	"genrecast/internal/classify"
	"genrecast/internal/config"
	"genrecast/internal/features"
	"genrecast/internal/ingestion"
	"genrecast/internal/logging"
	"genrecast/internal/pipeline"
	"genrecast/internal/runstore"
	"genrecast/internal/stage"
	"genrecast/internal/testsupport"
)

func trainRockPop(t *testing.T, cfg *config.Config, runs *runstore.Store) *pipeline.Result {
	t.Helper()
	testsupport.WriteGenreCSV(t, cfg.Paths.RawData, testsupport.RockPopRecords(20, 1))
	result, err := pipeline.New(cfg, runs, logging.NewNop()).Train(context.Background())
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}
	return result
}

func predictor(cfg *config.Config) *pipeline.Predictor {
	return pipeline.NewPredictor(artifact.NewStore(cfg.Paths.ArtifactsDir), logging.NewNop())
}

func TestTrainThenPredictRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := trainRockPop(t, cfg, nil)

	if result.Manifest == nil || result.Manifest.RunID != result.RunID {
		t.Fatalf("unexpected manifest: %#v", result.Manifest)
	}
	if !slices.Equal(result.Labels, []string{"pop", "rock"}) {
		t.Fatalf("labels: got %v", result.Labels)
	}
	if len(result.Candidates) != len(classify.Registry()) {
		t.Fatalf("candidates: got %d want %d", len(result.Candidates), len(classify.Registry()))
	}
	if result.TrainRows+result.TestRows != result.Rows {
		t.Fatalf("split %d+%d does not cover %d rows", result.TrainRows, result.TestRows, result.Rows)
	}
	if result.CrossVal == nil || len(result.CrossVal.Scores) != cfg.Training.CVFolds {
		t.Fatalf("unexpected cross-validation: %#v", result.CrossVal)
	}

	p := predictor(cfg)
	cases := []struct {
		features []float64
		want     string
	}{
		{testsupport.RockCentre(), "rock"},
		{testsupport.PopCentre(), "pop"},
	}
	for _, tc := range cases {
		got, err := p.Predict(context.Background(), testsupport.RecordMap(tc.features))
		if err != nil {
			t.Fatalf("Predict returned error: %v", err)
		}
		if got.Label != tc.want {
			t.Fatalf("prediction: got %q want %q", got.Label, tc.want)
		}
		if got.RunID != result.RunID {
			t.Fatalf("prediction run: got %q want %q", got.RunID, result.RunID)
		}
	}
}

func TestPredictAcceptsCanonicalNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	trainRockPop(t, cfg, nil)

	record := map[string]float64{}
	for name, v := range testsupport.RecordMap(testsupport.RockCentre()) {
		record["  "+name] = v
	}
	got, err := predictor(cfg).Predict(context.Background(), record)
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if got.Label != "rock" {
		t.Fatalf("prediction: got %q want rock", got.Label)
	}
}

func TestPredictRejectsDifferentFeatureSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	trainRockPop(t, cfg, nil)

	record := testsupport.RecordMap(testsupport.RockCentre())
	delete(record, "Tempo")
	_, err := predictor(cfg).Predict(context.Background(), record)
	if !errors.Is(err, stage.ErrContract) {
		t.Fatalf("expected ErrContract, got %v", err)
	}
}

func TestPredictBeforeTrainingIsNotFitted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := predictor(cfg).Predict(context.Background(), testsupport.RecordMap(testsupport.RockCentre()))
	if !errors.Is(err, stage.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if h := predictor(cfg).Health(context.Background()); h.Ready {
		t.Fatalf("expected unready health, got %#v", h)
	}
}

func TestPredictRejectsMixedArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	trainRockPop(t, cfg, nil)

	store := artifact.NewStore(cfg.Paths.ArtifactsDir)
	stale := &features.Scaler{Columns: []string{"tempo"}, Means: []float64{1}, Scales: []float64{1}}
	if _, err := store.Save(artifact.KindScaler, stale); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	_, err := predictor(cfg).Predict(context.Background(), testsupport.RecordMap(testsupport.RockCentre()))
	if !errors.Is(err, stage.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestTrainMissingTempoIsSchemaError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	header := config.DefaultExpectedColumns()[1:]
	rows := [][]string{}
	for _, rec := range testsupport.RockPopRecords(5, 2) {
		row := []string{}
		for _, v := range rec.Features[1:] {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, append(row, rec.Genre))
	}
	testsupport.WriteCSV(t, cfg.Paths.RawData, header, rows)

	_, err := pipeline.New(cfg, nil, logging.NewNop()).Train(context.Background())
	if !errors.Is(err, stage.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	var missing *ingestion.MissingColumnsError
	if !errors.As(err, &missing) || !slices.Equal(missing.Columns, []string{"Tempo"}) {
		t.Fatalf("expected missing Tempo, got %v", err)
	}
}

func TestTrainMissingRawDataIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := pipeline.New(cfg, nil, logging.NewNop()).Train(context.Background())
	if !errors.Is(err, stage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var runErr *pipeline.RunError
	if !errors.As(err, &runErr) || runErr.RunID == "" {
		t.Fatalf("expected RunError with run id, got %#v", err)
	}
}

func TestTrainToleratesZeroVarianceColumn(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	records := testsupport.RockPopRecords(20, 3)
	for i := range records {
		records[i].Features[10] = 0.5
	}
	testsupport.WriteGenreCSV(t, cfg.Paths.RawData, records)

	if _, err := pipeline.New(cfg, nil, logging.NewNop()).Train(context.Background()); err != nil {
		t.Fatalf("Train returned error: %v", err)
	}
	rock := testsupport.RockCentre()
	rock[10] = 0.5
	got, err := predictor(cfg).Predict(context.Background(), testsupport.RecordMap(rock))
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if got.Label != "rock" {
		t.Fatalf("prediction: got %q want rock", got.Label)
	}
}

func TestFailedRetrainInvalidatesPreviousArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	trainRockPop(t, cfg, nil)
	if err := os.Remove(cfg.Paths.RawData); err != nil {
		t.Fatalf("remove raw data: %v", err)
	}
	if _, err := pipeline.New(cfg, nil, logging.NewNop()).Train(context.Background()); err == nil {
		t.Fatal("expected retrain without raw data to fail")
	}
	_, err := predictor(cfg).Predict(context.Background(), testsupport.RecordMap(testsupport.RockCentre()))
	if !errors.Is(err, stage.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted after failed retrain, got %v", err)
	}
}

func TestTrainWithTuningPersistsTunedModel(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStrategies(classify.KNearestNeighborsName),
		testsupport.WithTuning(3, 3),
	)
	result := trainRockPop(t, cfg, nil)
	if !result.Tuned || result.Search == nil || len(result.Search.Trials) != 3 {
		t.Fatalf("expected tuned result with 3 trials, got tuned=%v search=%#v", result.Tuned, result.Search)
	}
	if !result.Manifest.Tuned {
		t.Fatal("manifest does not record tuning")
	}
	got, err := predictor(cfg).Predict(context.Background(), testsupport.RecordMap(testsupport.RockCentre()))
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if got.Label != "rock" {
		t.Fatalf("prediction: got %q want rock", got.Label)
	}
}

func TestTrainRecordsRunHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runs, err := runstore.Open(context.Background(), cfg.Paths.RunStore)
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	defer runs.Close()

	result := trainRockPop(t, cfg, runs)
	got, err := runs.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != runstore.StatusCompleted || got.Strategy != result.Selected {
		t.Fatalf("unexpected run record: %#v", got)
	}
	if len(got.Evaluations) != len(result.Candidates) {
		t.Fatalf("evaluations: got %d want %d", len(got.Evaluations), len(result.Candidates))
	}
	if _, err := os.Stat(result.RunLogPath); err != nil {
		t.Fatalf("run log missing: %v", err)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	records := testsupport.RockPopRecords(10, 4)
	records = append(records, records[0])
	testsupport.WriteGenreCSV(t, cfg.Paths.RawData, records)

	p := pipeline.New(cfg, nil, logging.NewNop())
	first, err := p.Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if first.RawRows != 21 || first.Rows != 20 {
		t.Fatalf("rows: got raw=%d clean=%d want 21/20", first.RawRows, first.Rows)
	}
	snapshot, err := os.ReadFile(first.ProcessedPath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if _, err := p.Ingest(context.Background()); err != nil {
		t.Fatalf("second Ingest returned error: %v", err)
	}
	again, err := os.ReadFile(first.ProcessedPath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !bytes.Equal(snapshot, again) {
		t.Fatal("processed snapshot changed between runs")
	}
}
