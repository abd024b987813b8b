package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"genrecast/internal/stage"
)

// Store persists run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const runColumns = "id, status, started_at, finished_at, dataset_path, rows, components, strategy, tuned, params, primary_metric, score, cv_mean, cv_std, error_kind, error_message"

// Open creates or connects to the run database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a new running run with a fresh ID.
func (s *Store) Begin(ctx context.Context, datasetPath string) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		Status:      StatusRunning,
		StartedAt:   time.Now().UTC(),
		DatasetPath: datasetPath,
	}
	err := s.exec(ctx,
		"INSERT INTO runs (id, status, started_at, dataset_path) VALUES (?, ?, ?, ?)",
		run.ID, string(run.Status), formatTime(run.StartedAt), nullableString(datasetPath),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordEvaluation stores or replaces the evaluation of one strategy.
func (s *Store) RecordEvaluation(ctx context.Context, runID string, e Evaluation) error {
	err := s.exec(ctx,
		`INSERT INTO evaluations (run_id, strategy, params, accuracy, macro_f1, selected, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, strategy) DO UPDATE SET
		   params = excluded.params,
		   accuracy = excluded.accuracy,
		   macro_f1 = excluded.macro_f1,
		   selected = excluded.selected,
		   report_json = excluded.report_json`,
		runID, e.Strategy, nullableString(e.Params), e.Accuracy, e.MacroF1, boolToInt(e.Selected), nullableString(e.ReportJSON),
	)
	if err != nil {
		return fmt.Errorf("record evaluation %s: %w", e.Strategy, err)
	}
	return nil
}

// Complete marks a run as completed with its outcome.
func (s *Store) Complete(ctx context.Context, runID string, o Outcome) error {
	return s.finish(ctx, runID,
		`UPDATE runs SET status = ?, finished_at = ?, rows = ?, components = ?, strategy = ?, tuned = ?,
		 params = ?, primary_metric = ?, score = ?, cv_mean = ?, cv_std = ? WHERE id = ?`,
		string(StatusCompleted), formatTime(time.Now().UTC()), o.Rows, o.Components, o.Strategy, boolToInt(o.Tuned),
		nullableString(o.Params), o.PrimaryMetric, o.Score, o.CVMean, o.CVStd, runID,
	)
}

// Fail marks a run as failed, keeping the error kind and message.
func (s *Store) Fail(ctx context.Context, runID string, cause error) error {
	kind, message := stage.Kind(cause), ""
	if cause != nil {
		message = cause.Error()
	}
	return s.finish(ctx, runID,
		"UPDATE runs SET status = ?, finished_at = ?, error_kind = ?, error_message = ? WHERE id = ?",
		string(StatusFailed), formatTime(time.Now().UTC()), nullableString(kind), nullableString(message), runID,
	)
}

func (s *Store) finish(ctx context.Context, runID, query string, args ...any) error {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return stage.Wrap(stage.ErrNotFound, "runstore", "update", fmt.Sprintf("run %s not found", runID), nil)
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Get returns a run with its evaluations. id may be a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, stage.Wrap(stage.ErrValidation, "runstore", "get", "run id is required", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2",
		id, stripLikeWildcards(id)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var run *Run
	switch {
	case len(matches) == 0:
		return nil, stage.Wrap(stage.ErrNotFound, "runstore", "get", fmt.Sprintf("run %s not found", id), nil)
	case len(matches) == 1 || matches[0].ID == id:
		run = matches[0]
	case matches[1].ID == id:
		run = matches[1]
	default:
		return nil, stage.Wrap(stage.ErrValidation, "runstore", "get", fmt.Sprintf("run id prefix %s is ambiguous", id), nil)
	}

	evals, err := s.evaluations(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Evaluations = evals
	return run, nil
}

func (s *Store) evaluations(ctx context.Context, runID string) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy, params, accuracy, macro_f1, selected, report_json
		 FROM evaluations WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var (
			e        Evaluation
			params   sql.NullString
			selected int
			report   sql.NullString
		)
		if err := rows.Scan(&e.Strategy, &params, &e.Accuracy, &e.MacroF1, &selected, &report); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		e.Params = params.String
		e.Selected = selected != 0
		e.ReportJSON = report.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
