package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"genrecast/internal/config"
	"genrecast/internal/notifications"
	"genrecast/internal/stage"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, chan captured) {
	t.Helper()
	ch := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyTrainingFailed(context.Background(), "run", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestTrainingCompletedPayload(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusOK)
	err := serviceFor(srv.URL).NotifyTrainingCompleted(context.Background(), notifications.RunSummary{
		RunID:    "3f2a",
		Strategy: "k_nearest_neighbors",
		Metric:   "macro_f1",
		Score:    0.9125,
		Tuned:    true,
		Duration: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	got := <-ch
	if got.title != "genrecast - Training Complete" {
		t.Fatalf("title: got %q", got.title)
	}
	if got.tags != "genrecast,train,completed" {
		t.Fatalf("tags: got %q", got.tags)
	}
	want := "Selected k_nearest_neighbors (tuned) with macro_f1 0.9125 in 3s\nRun: 3f2a"
	if got.body != want {
		t.Fatalf("body: got %q want %q", got.body, want)
	}
}

func TestTrainingFailedCarriesKind(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusOK)
	cause := stage.Wrap(stage.ErrSchema, "ingest", "columns", "missing Tempo", nil)
	if err := serviceFor(srv.URL).NotifyTrainingFailed(context.Background(), "run-9", cause); err != nil {
		t.Fatalf("notify: %v", err)
	}
	got := <-ch
	if got.priority != "high" {
		t.Fatalf("priority: got %q", got.priority)
	}
	if !strings.HasPrefix(got.body, "Training failed [schema]: ") || !strings.HasSuffix(got.body, "\nRun: run-9") {
		t.Fatalf("body: got %q", got.body)
	}
}

func TestNonSuccessStatusIsError(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	if err := serviceFor(srv.URL).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
