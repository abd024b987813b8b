package stage_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"genrecast/internal/stage"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := stage.Wrap(stage.ErrSchema, "ingestion", "validate", "missing columns", base)
	if !errors.Is(err, stage.ErrSchema) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ingestion", "validate", "missing columns", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := stage.Wrap(stage.ErrConfiguration, "", "", "", nil)
	if err.Error() != "configuration error: stage failure" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{stage.Wrap(stage.ErrNotFound, "ingestion", "load", "", fs.ErrNotExist), "not_found"},
		{stage.Wrap(stage.ErrSchema, "ingestion", "validate", "", nil), "schema"},
		{stage.Wrap(stage.ErrConfiguration, "cleaning", "", "", nil), "configuration"},
		{stage.Wrap(stage.ErrNotFitted, "artifact", "load", "", nil), "not_fitted"},
		{stage.Wrap(stage.ErrUnknownLabel, "labels", "inverse", "", nil), "unknown_label"},
		{stage.Wrap(stage.ErrValidation, "api", "", "", nil), "validation"},
		{fmt.Errorf("outer: %w", stage.Wrap(stage.ErrContract, "features", "", "", nil)), "contract"},
		{errors.New("plain"), "internal"},
	}
	for _, tc := range cases {
		if got := stage.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := stage.WithStage(context.Background(), "reduce")
	ctx = stage.WithRunID(ctx, "run-1")
	ctx = stage.WithRequestID(ctx, "")

	if name, ok := stage.StageFromContext(ctx); !ok || name != "reduce" {
		t.Fatalf("unexpected stage: %q %v", name, ok)
	}
	if id, ok := stage.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %q %v", id, ok)
	}
	if _, ok := stage.RequestIDFromContext(ctx); ok {
		t.Fatal("expected empty request id to be ignored")
	}
}
