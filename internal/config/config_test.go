package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"genrecast/internal/config"
	"genrecast/internal/stage"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantArtifacts := filepath.Join(tempHome, ".local", "share", "genrecast", "artifacts")
	if cfg.Paths.ArtifactsDir != wantArtifacts {
		t.Fatalf("unexpected artifacts dir: got %q want %q", cfg.Paths.ArtifactsDir, wantArtifacts)
	}
	if cfg.Cleaning.MissingPolicy != "drop" {
		t.Fatalf("unexpected missing policy: %q", cfg.Cleaning.MissingPolicy)
	}
	if cfg.Training.Seed != 42 {
		t.Fatalf("unexpected seed: %d", cfg.Training.Seed)
	}
	if got := len(cfg.FeatureColumns()); got != 12 {
		t.Fatalf("unexpected feature column count: got %d want 12", got)
	}
	if cfg.Tuning.Enabled {
		t.Fatal("expected tuning disabled by default")
	}
}

func TestLoadHonoursEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	artifacts := filepath.Join(t.TempDir(), "artifacts")
	raw := filepath.Join(t.TempDir(), "raw.csv")
	t.Setenv("GENRECAST_ARTIFACTS_DIR", artifacts)
	t.Setenv("GENRECAST_RAW_DATA", raw)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ArtifactsDir != artifacts {
		t.Fatalf("artifacts dir: got %q want %q", cfg.Paths.ArtifactsDir, artifacts)
	}
	if cfg.Paths.RawData != raw {
		t.Fatalf("raw data: got %q want %q", cfg.Paths.RawData, raw)
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "genrecast.toml")

	custom := config.Default()
	custom.Paths.ArtifactsDir = filepath.Join(dir, "artifacts")
	custom.Cleaning.MissingPolicy = "  MEDIAN "
	custom.Training.Strategies = []string{" K_Nearest_Neighbors "}
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Cleaning.MissingPolicy != "median" {
		t.Fatalf("missing policy: got %q want %q", cfg.Cleaning.MissingPolicy, "median")
	}
	if len(cfg.Training.Strategies) != 1 || cfg.Training.Strategies[0] != "k_nearest_neighbors" {
		t.Fatalf("unexpected strategies: %v", cfg.Training.Strategies)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format: got %q want json", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown policy":    func(c *config.Config) { c.Cleaning.MissingPolicy = "interpolate" },
		"unknown strategy":  func(c *config.Config) { c.Training.Strategies = []string{"random_forest"} },
		"unknown metric":    func(c *config.Config) { c.Training.PrimaryMetric = "roc_auc" },
		"test fraction":     func(c *config.Config) { c.Training.TestFraction = 1 },
		"folds":             func(c *config.Config) { c.Training.CVFolds = 1 },
		"variance fraction": func(c *config.Config) { c.Reduction.VarianceFraction = 1.5 },
		"target missing":    func(c *config.Config) { c.Dataset.Target = "Mood" },
		"tuning iterations": func(c *config.Config) { c.Tuning.Enabled = true; c.Tuning.Iterations = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, stage.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[training]\nlearning_rate = 0.1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); !errors.Is(err, stage.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[training]") {
		t.Fatalf("sample missing training section: %s", data)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Reduction.VarianceFraction != 0.85 {
		t.Fatalf("variance fraction: got %g want 0.85", cfg.Reduction.VarianceFraction)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ArtifactsDir = filepath.Join(base, "artifacts")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ProcessedData = filepath.Join(base, "processed", "data.csv")
	cfg.Paths.RunStore = filepath.Join(base, "state", "runs.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{"artifacts", "logs", "processed", "state"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
