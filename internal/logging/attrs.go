package logging

import (
	"log/slog"
	"time"

	"genrecast/internal/stage"
)

// Attr aliases slog.Attr so callers need only this package.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Strings logs a list of names.
func Strings(key string, values []string) Attr { return slog.Any(key, values) }

// Error records err under "error"; nil is logged as "<nil>".
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// ErrorKind records stage.Kind(err) under FieldErrorKind.
func ErrorKind(err error) Attr {
	return slog.String(FieldErrorKind, stage.Kind(err))
}

func toArgs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}
