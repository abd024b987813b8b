package testsupport

import (
	"path/filepath"
	"testing"

	"genrecast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RawData = filepath.Join(base, "data", "raw", "music_dataset.csv")
	cfgVal.Paths.ProcessedData = filepath.Join(base, "data", "processed", "processed_music_dataset.csv")
	cfgVal.Paths.ArtifactsDir = filepath.Join(base, "artifacts")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RunStore = filepath.Join(base, "runs.db")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithMissingPolicy overrides the cleaning policy.
func WithMissingPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cleaning.MissingPolicy = policy
	}
}

// WithStrategies overrides the classifier registry.
func WithStrategies(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Training.Strategies = names
	}
}

// WithComponents retains exactly n principal components.
func WithComponents(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reduction.Components = n
	}
}

// WithTuning enables randomized search with a small budget.
func WithTuning(iterations, folds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tuning.Enabled = true
		b.cfg.Tuning.Iterations = iterations
		b.cfg.Tuning.Folds = folds
	}
}

// WithCVFolds overrides the cross-validation fold count.
func WithCVFolds(folds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Training.CVFolds = folds
	}
}
