package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDataset()
	c.normalizeTraining()
	c.normalizeServer()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
	c.normalizeLogging()
	c.Cleaning.MissingPolicy = strings.ToLower(strings.TrimSpace(c.Cleaning.MissingPolicy))
	if c.Cleaning.MissingPolicy == "" {
		c.Cleaning.MissingPolicy = defaultMissingPolicy
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("GENRECAST_ARTIFACTS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ArtifactsDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("GENRECAST_RAW_DATA"); ok && strings.TrimSpace(value) != "" {
		c.Paths.RawData = strings.TrimSpace(value)
	}

	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.raw_data", &c.Paths.RawData, defaultRawData},
		{"paths.processed_data", &c.Paths.ProcessedData, defaultProcessedData},
		{"paths.artifacts_dir", &c.Paths.ArtifactsDir, defaultArtifactsDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.run_store", &c.Paths.RunStore, defaultRunStore},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			trimmed = field.fallback
		}
		expanded, err := ExpandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeDataset() {
	c.Dataset.Target = strings.TrimSpace(c.Dataset.Target)
	if c.Dataset.Target == "" {
		c.Dataset.Target = defaultTarget
	}
	columns := make([]string, 0, len(c.Dataset.ExpectedColumns))
	for _, col := range c.Dataset.ExpectedColumns {
		if trimmed := strings.TrimSpace(col); trimmed != "" {
			columns = append(columns, trimmed)
		}
	}
	if len(columns) == 0 {
		columns = DefaultExpectedColumns()
	}
	c.Dataset.ExpectedColumns = columns
}

func (c *Config) normalizeTraining() {
	strategies := make([]string, 0, len(c.Training.Strategies))
	for _, name := range c.Training.Strategies {
		if trimmed := strings.ToLower(strings.TrimSpace(name)); trimmed != "" {
			strategies = append(strategies, trimmed)
		}
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	c.Training.Strategies = strategies
	c.Training.PrimaryMetric = strings.ToLower(strings.TrimSpace(c.Training.PrimaryMetric))
	if c.Training.PrimaryMetric == "" {
		c.Training.PrimaryMetric = defaultPrimaryMetric
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = defaultReadTimeout
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = defaultWriteTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
