package config

const (
	defaultRawData          = "~/.local/share/genrecast/data/raw/music_dataset.csv"
	defaultProcessedData    = "~/.local/share/genrecast/data/processed/processed_music_dataset.csv"
	defaultArtifactsDir     = "~/.local/share/genrecast/artifacts"
	defaultLogDir           = "~/.local/share/genrecast/logs"
	defaultRunStore         = "~/.local/share/genrecast/runs.db"
	defaultTarget           = "Genre"
	defaultMissingPolicy    = "drop"
	defaultVarianceFraction = 0.85
	defaultTestFraction     = 0.2
	defaultSeed             = 42
	defaultPrimaryMetric    = "macro_f1"
	defaultCVFolds          = 5
	defaultTuningIterations = 50
	defaultTuningFolds      = 5
	defaultServerBind       = "127.0.0.1:5000"
	defaultNtfyTimeout      = 10
	defaultReadTimeout      = 10
	defaultWriteTimeout     = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// DefaultExpectedColumns lists the raw dataset header: twelve audio feature
// columns plus the genre target.
func DefaultExpectedColumns() []string {
	return []string{
		"Tempo",
		"Dynamics Range",
		"Vocal Presence",
		"Percussion Strength",
		"String Instrument Detection",
		"Electronic Element Presence",
		"Rhythm Complexity",
		"Drums Influence",
		"Distorted Guitar",
		"Metal Frequencies",
		"Ambient Sound Influence",
		"Instrumental Overlaps",
		defaultTarget,
	}
}

// DefaultStrategies lists the classifier registry in selection order.
func DefaultStrategies() []string {
	return []string{"logistic_regression", "k_nearest_neighbors", "support_vector_classifier"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawData:       defaultRawData,
			ProcessedData: defaultProcessedData,
			ArtifactsDir:  defaultArtifactsDir,
			LogDir:        defaultLogDir,
			RunStore:      defaultRunStore,
		},
		Dataset: Dataset{
			Target:          defaultTarget,
			ExpectedColumns: DefaultExpectedColumns(),
		},
		Cleaning: Cleaning{
			MissingPolicy: defaultMissingPolicy,
		},
		Reduction: Reduction{
			VarianceFraction: defaultVarianceFraction,
		},
		Training: Training{
			TestFraction:  defaultTestFraction,
			Seed:          defaultSeed,
			Strategies:    DefaultStrategies(),
			PrimaryMetric: defaultPrimaryMetric,
			CVFolds:       defaultCVFolds,
		},
		Tuning: Tuning{
			Enabled:    false,
			Iterations: defaultTuningIterations,
			Folds:      defaultTuningFolds,
		},
		Server: Server{
			Bind:                defaultServerBind,
			ReadTimeoutSeconds:  defaultReadTimeout,
			WriteTimeoutSeconds: defaultWriteTimeout,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
