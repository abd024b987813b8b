package stageexec_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"genrecast/internal/stage"
	"genrecast/internal/stageexec"
)

func TestRunLogsCompletionWithStageField(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := stage.WithRunID(context.Background(), "run-1")

	var seen string
	err := stageexec.Run(ctx, logger, "transform", func(ctx context.Context, _ *slog.Logger) error {
		seen, _ = stage.StageFromContext(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if seen != "transform" {
		t.Fatalf("stage in context: got %q want transform", seen)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"stage started"`, `"msg":"stage completed"`, `"stage":"transform"`, `"run_id":"run-1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s: %s", want, out)
		}
	}
}

func TestRunWrapsFailureWithStageName(t *testing.T) {
	cause := stage.Wrap(stage.ErrSchema, "ingest", "validate", "missing columns: Tempo", nil)
	err := stageexec.Run(context.Background(), nil, "ingest", func(context.Context, *slog.Logger) error {
		return cause
	})
	if !errors.Is(err, stage.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "ingest stage: ") {
		t.Fatalf("error missing stage prefix: %v", err)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	err := stageexec.Run(context.Background(), nil, "train", func(context.Context, *slog.Logger) error {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "panicked: boom") {
		t.Fatalf("expected panic error, got %v", err)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := stageexec.Run(ctx, nil, "clean", func(context.Context, *slog.Logger) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before body, got err=%v called=%v", err, called)
	}
}
