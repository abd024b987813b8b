package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"genrecast/internal/config"
	"genrecast/internal/stage"
)

const userAgent = "genrecast/0.1.0"

// RunSummary describes a completed training run.
type RunSummary struct {
	RunID    string
	Strategy string
	Metric   string
	Score    float64
	Tuned    bool
	Duration time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyTrainingCompleted(ctx context.Context, summary RunSummary) error
	NotifyTrainingFailed(ctx context.Context, runID string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService posts to the configured ntfy topic URL, or discards every
// notification when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	seconds := cfg.Notifications.RequestTimeoutSeconds
	if seconds <= 0 {
		seconds = 10
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: time.Duration(seconds) * time.Second},
	}
}

// notice is one ntfy message. Title, tags and priority travel as headers.
type notice struct {
	title    string
	body     string
	tags     []string
	priority string
}

func (m notice) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	if m.title != "" {
		h.Set("Title", m.title)
	}
	if len(m.tags) > 0 {
		h.Set("Tags", strings.Join(m.tags, ","))
	}
	if m.priority != "" {
		h.Set("Priority", m.priority)
	}
	return h
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyTrainingCompleted(ctx context.Context, s RunSummary) error {
	strategy := s.Strategy
	if s.Tuned {
		strategy += " (tuned)"
	}
	body := fmt.Sprintf("Selected %s with %s %.4f in %s\nRun: %s",
		strategy, s.Metric, s.Score, s.Duration.Round(time.Second), s.RunID)
	return n.post(ctx, notice{
		title: "genrecast - Training Complete",
		body:  body,
		tags:  []string{"genrecast", "train", "completed"},
	})
}

func (n *ntfyService) NotifyTrainingFailed(ctx context.Context, runID string, err error) error {
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	body := fmt.Sprintf("Training failed [%s]: %s", stage.Kind(err), reason)
	if runID = strings.TrimSpace(runID); runID != "" {
		body += "\nRun: " + runID
	}
	return n.post(ctx, notice{
		title:    "genrecast - Training Failed",
		body:     body,
		tags:     []string{"genrecast", "train", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.post(ctx, notice{
		title:    "genrecast - Test",
		body:     "Notification system test",
		tags:     []string{"genrecast", "test"},
		priority: "low",
	})
}

// post delivers m and treats any non-2xx status as an error carrying the
// start of the response body.
func (n *ntfyService) post(ctx context.Context, m notice) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(m.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header = m.header()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ntfy returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyTrainingCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyTrainingFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
