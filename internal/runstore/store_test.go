package runstore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"genrecast/internal/runstore"
	"genrecast/internal/stage"
)

func openStore(t *testing.T) *runstore.Store {
	t.Helper()
	store, err := runstore.Open(context.Background(), filepath.Join(t.TempDir(), "state", "runs.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginCompleteGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "/data/raw.csv")
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if run.ID == "" || run.Status != runstore.StatusRunning {
		t.Fatalf("unexpected run: %#v", run)
	}
	evals := []runstore.Evaluation{
		{Strategy: "logistic_regression", Accuracy: 0.9, MacroF1: 0.88, Selected: true, ReportJSON: `{"accuracy":0.9}`},
		{Strategy: "k_nearest_neighbors", Accuracy: 0.8, MacroF1: 0.79, Params: "k=5"},
	}
	for _, e := range evals {
		if err := store.RecordEvaluation(ctx, run.ID, e); err != nil {
			t.Fatalf("RecordEvaluation returned error: %v", err)
		}
	}
	outcome := runstore.Outcome{Rows: 100, Components: 4, Strategy: "logistic_regression", PrimaryMetric: "macro_f1", Score: 0.88, CVMean: 0.86, CVStd: 0.02}
	if err := store.Complete(ctx, run.ID, outcome); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	got, err := store.Get(ctx, run.ID[:8])
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != runstore.StatusCompleted || got.Strategy != "logistic_regression" || got.Rows != 100 {
		t.Fatalf("unexpected run: %#v", got)
	}
	if got.FinishedAt == nil || got.Duration() < 0 {
		t.Fatalf("expected finish time, got %#v", got.FinishedAt)
	}
	if len(got.Evaluations) != 2 || !got.Evaluations[0].Selected || got.Evaluations[1].Params != "k=5" {
		t.Fatalf("unexpected evaluations: %#v", got.Evaluations)
	}
}

func TestFailRecordsErrorKind(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.Begin(ctx, "")
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	cause := stage.Wrap(stage.ErrSchema, "ingest", "validate", "missing columns: Tempo", nil)
	if err := store.Fail(ctx, run.ID, cause); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != runstore.StatusFailed || got.ErrorKind != "schema" {
		t.Fatalf("unexpected failed run: %#v", got)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	var ids []string
	for range 3 {
		run, err := store.Begin(ctx, "")
		if err != nil {
			t.Fatalf("Begin returned error: %v", err)
		}
		ids = append(ids, run.ID)
	}
	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs: got %d want 2", len(runs))
	}
	if runs[0].ID != ids[2] {
		t.Fatalf("newest run: got %s want %s", runs[0].ID, ids[2])
	}
}

func TestGetUnknownRun(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, stage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Complete(context.Background(), "nope", runstore.Outcome{}); !errors.Is(err, stage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Complete, got %v", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()
	store, err := runstore.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	run, err := store.Begin(ctx, "")
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	_ = store.Close()

	reopened, err := runstore.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, run.ID); err != nil {
		t.Fatalf("Get after reopen returned error: %v", err)
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := runstore.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	_ = db.Close()

	if _, err := runstore.Open(context.Background(), path); !errors.Is(err, runstore.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
