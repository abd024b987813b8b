package config

import (
	"fmt"
	"slices"

	"genrecast/internal/stage"
)

var (
	missingPolicies = []string{"mean", "median", "mode", "drop"}
	primaryMetrics  = []string{"macro_f1", "accuracy"}
	logFormats      = []string{"console", "json"}
	knownStrategies = DefaultStrategies()
)

// Validate ensures the configuration is usable. Every failure carries the
// stage.ErrConfiguration marker.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateDataset,
		c.validateCleaning,
		c.validateReduction,
		c.validateTraining,
		c.validateTuning,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return stage.Wrap(stage.ErrConfiguration, "config", key, fmt.Sprintf(format, args...), nil)
}

func (c *Config) validateDataset() error {
	if !slices.Contains(c.Dataset.ExpectedColumns, c.Dataset.Target) {
		return invalid("dataset.expected_columns", "must include target column %q", c.Dataset.Target)
	}
	if len(c.Dataset.ExpectedColumns) < 2 {
		return invalid("dataset.expected_columns", "must list at least one feature column")
	}
	return nil
}

func (c *Config) validateCleaning() error {
	if !slices.Contains(missingPolicies, c.Cleaning.MissingPolicy) {
		return invalid("cleaning.missing_policy", "unknown policy %q (want one of %v)", c.Cleaning.MissingPolicy, missingPolicies)
	}
	return nil
}

func (c *Config) validateReduction() error {
	if c.Reduction.Components < 0 {
		return invalid("reduction.components", "must not be negative")
	}
	if c.Reduction.Components == 0 && (c.Reduction.VarianceFraction <= 0 || c.Reduction.VarianceFraction > 1) {
		return invalid("reduction.variance_fraction", "must be in (0, 1], got %g", c.Reduction.VarianceFraction)
	}
	return nil
}

func (c *Config) validateTraining() error {
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return invalid("training.test_fraction", "must be in (0, 1), got %g", c.Training.TestFraction)
	}
	for _, name := range c.Training.Strategies {
		if !slices.Contains(knownStrategies, name) {
			return invalid("training.strategies", "unknown strategy %q", name)
		}
	}
	if !slices.Contains(primaryMetrics, c.Training.PrimaryMetric) {
		return invalid("training.primary_metric", "unknown metric %q (want one of %v)", c.Training.PrimaryMetric, primaryMetrics)
	}
	if c.Training.CVFolds < 2 {
		return invalid("training.cv_folds", "must be at least 2, got %d", c.Training.CVFolds)
	}
	return nil
}

func (c *Config) validateTuning() error {
	if !c.Tuning.Enabled {
		return nil
	}
	if c.Tuning.Iterations <= 0 {
		return invalid("tuning.iterations", "must be positive")
	}
	if c.Tuning.Folds < 2 {
		return invalid("tuning.folds", "must be at least 2, got %d", c.Tuning.Folds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(logFormats, c.Logging.Format) {
		return invalid("logging.format", "unsupported value %q", c.Logging.Format)
	}
	return nil
}
