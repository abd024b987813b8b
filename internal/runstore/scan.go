package runstore

import (
	"database/sql"
	"strings"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		status       string
		startedRaw   string
		finishedRaw  sql.NullString
		datasetPath  sql.NullString
		strategy     sql.NullString
		tuned        int
		params       sql.NullString
		metric       sql.NullString
		score        sql.NullFloat64
		cvMean       sql.NullFloat64
		cvStd        sql.NullFloat64
		errorKind    sql.NullString
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&startedRaw,
		&finishedRaw,
		&datasetPath,
		&run.Rows,
		&run.Components,
		&strategy,
		&tuned,
		&params,
		&metric,
		&score,
		&cvMean,
		&cvStd,
		&errorKind,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	run.Status = Status(status)
	run.DatasetPath = datasetPath.String
	run.Strategy = strategy.String
	run.Tuned = tuned != 0
	run.Params = params.String
	run.PrimaryMetric = metric.String
	run.Score = score.Float64
	run.CVMean = cvMean.Float64
	run.CVStd = cvStd.Float64
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// stripLikeWildcards drops LIKE metacharacters; run IDs are UUIDs.
func stripLikeWildcards(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
