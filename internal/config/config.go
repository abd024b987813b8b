package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"genrecast/internal/stage"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	RawData       string `toml:"raw_data"`
	ProcessedData string `toml:"processed_data"`
	ArtifactsDir  string `toml:"artifacts_dir"`
	LogDir        string `toml:"log_dir"`
	RunStore      string `toml:"run_store"`
}

// Dataset describes the schema of the raw input file.
type Dataset struct {
	Target          string   `toml:"target"`
	ExpectedColumns []string `toml:"expected_columns"`
}

// Cleaning contains row cleaning settings.
type Cleaning struct {
	MissingPolicy string `toml:"missing_policy"`
}

// Reduction controls how many principal components are retained. A positive
// Components wins over VarianceFraction.
type Reduction struct {
	VarianceFraction float64 `toml:"variance_fraction"`
	Components       int     `toml:"components"`
}

// Training contains split, strategy, and validation settings.
type Training struct {
	TestFraction  float64  `toml:"test_fraction"`
	Seed          uint64   `toml:"seed"`
	Strategies    []string `toml:"strategies"`
	PrimaryMetric string   `toml:"primary_metric"`
	CVFolds       int      `toml:"cv_folds"`
}

// Tuning contains randomized hyperparameter search settings.
type Tuning struct {
	Enabled    bool `toml:"enabled"`
	Iterations int  `toml:"iterations"`
	Folds      int  `toml:"folds"`
}

// Server contains prediction API settings.
type Server struct {
	Bind                string `toml:"bind"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
}

// Notifications configures ntfy delivery of training outcomes. An empty
// topic disables delivery.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for genrecast.
//
// Configuration sections by subsystem:
//   - Paths: raw/processed dataset files, artifacts root, logs, run history
//   - Dataset: target column and expected raw schema
//   - Cleaning: missing value policy
//   - Reduction: principal component retention
//   - Training: split, strategies, selection metric, cross-validation
//   - Tuning: randomized hyperparameter search
//   - Server: prediction API bind address and timeouts
//   - Notifications: ntfy topic for training outcomes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Dataset       Dataset       `toml:"dataset"`
	Cleaning      Cleaning      `toml:"cleaning"`
	Reduction     Reduction     `toml:"reduction"`
	Training      Training      `toml:"training"`
	Tuning        Tuning        `toml:"tuning"`
	Server        Server        `toml:"server"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath is ~/.config/genrecast/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/genrecast/config.toml")
}

// Load reads the config file at path, or the first existing default location
// when path is empty, then applies environment overrides, normalization and
// validation. It returns the config, the path it resolved and whether that
// file existed. A missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile strictly decodes TOML; unknown keys are configuration errors.
func decodeFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return stage.Wrap(stage.ErrConfiguration, "config", "parse", path, err)
	}
	return nil
}

// locate resolves an explicit path as-is. Without one it tries the user
// config and then ./genrecast.toml, falling back to the user config path.
func locate(path string) (string, bool, error) {
	var candidates []string
	if strings.TrimSpace(path) != "" {
		candidates = []string{path}
	} else {
		candidates = []string{"~/.config/genrecast/config.toml", "genrecast.toml"}
	}

	var first string
	for _, candidate := range candidates {
		expanded, err := ExpandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err == nil, errors.Is(err, fs.ErrNotExist):
			continue
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the artifacts root, the log directory, and the
// parent directories of the processed snapshot and run store.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.ArtifactsDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.ProcessedData),
		filepath.Dir(c.Paths.RunStore),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FeatureColumns returns the expected columns without the target column.
func (c *Config) FeatureColumns() []string {
	out := make([]string, 0, len(c.Dataset.ExpectedColumns))
	for _, col := range c.Dataset.ExpectedColumns {
		if col == c.Dataset.Target {
			continue
		}
		out = append(out, col)
	}
	return out
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. An empty value stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample config to path, creating parent
// directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
