package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"genrecast/internal/artifact"
	"genrecast/internal/classify"
	"genrecast/internal/cleaning"
	"genrecast/internal/dataset"
	"genrecast/internal/features"
	"genrecast/internal/labels"
	"genrecast/internal/logging"
	"genrecast/internal/metrics"
	"genrecast/internal/reduction"
	"genrecast/internal/stage"
)

// Prediction is the decoded output for one record.
type Prediction struct {
	Label    string `json:"label"`
	Code     int    `json:"code"`
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy"`
}

// chain is the fitted state of one training run in replay order.
type chain struct {
	manifest   *artifact.Manifest
	scaler     *features.Scaler
	mapping    *labels.Mapping
	projection *reduction.Projection
	model      classify.Classifier
}

// Predictor replays persisted artifacts on single records. It is safe for
// concurrent use; the loaded chain is cached until the manifest changes.
type Predictor struct {
	store  *artifact.Store
	logger *slog.Logger

	mu     sync.Mutex
	cached *chain
}

// NewPredictor reads artifacts from store.
func NewPredictor(store *artifact.Store, logger *slog.Logger) *Predictor {
	return &Predictor{store: store, logger: logging.NewComponentLogger(logger, "predictor")}
}

// Predict canonicalizes the record keys, then applies scaler, projection and
// model in training order and decodes the predicted code.
func (p *Predictor) Predict(ctx context.Context, record map[string]float64) (*Prediction, error) {
	start := time.Now()
	prediction, err := p.predict(ctx, record)
	metrics.RecordPrediction(time.Since(start), err)
	if err != nil {
		logging.WithContext(ctx, p.logger).Warn("prediction failed",
			logging.ErrorKind(err),
			logging.Error(err),
		)
		return nil, err
	}
	logging.WithContext(ctx, p.logger).Debug("prediction served",
		logging.String("label", prediction.Label),
		logging.String("strategy", prediction.Strategy),
		logging.Duration("elapsed", time.Since(start)),
	)
	return prediction, nil
}

func (p *Predictor) predict(ctx context.Context, record map[string]float64) (*Prediction, error) {
	row, err := canonicalRecord(record)
	if err != nil {
		return nil, err
	}

	var c *chain
	err = p.store.WithReadLock(ctx, func() error {
		var loadErr error
		c, loadErr = p.load()
		return loadErr
	})
	if err != nil {
		return nil, err
	}

	scaled, err := c.scaler.Transform(row)
	if err != nil {
		return nil, err
	}
	reduced, err := c.projection.Transform(scaled)
	if err != nil {
		return nil, err
	}
	codes, err := c.model.Predict(reduced.Data)
	if err != nil {
		return nil, err
	}
	decoded, err := c.mapping.Decode(codes)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Label:    decoded[0],
		Code:     codes[0],
		RunID:    c.manifest.RunID,
		Strategy: c.manifest.Strategy,
	}, nil
}

// load returns the cached chain when the manifest still matches, otherwise
// loads every artifact verified against the current manifest.
func (p *Predictor) load() (*chain, error) {
	manifest, err := p.store.ReadManifest()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && sameRun(p.cached.manifest, manifest) {
		return p.cached, nil
	}

	c := &chain{manifest: manifest}
	var (
		scaler     features.Scaler
		mapping    labels.Mapping
		projection reduction.Projection
		model      classify.Classifier
	)
	steps := []struct {
		kind artifact.Kind
		into any
	}{
		{artifact.KindScaler, &scaler},
		{artifact.KindEncoder, &mapping},
		{artifact.KindProjection, &projection},
		{artifact.KindModel, &model},
	}
	for _, step := range steps {
		if err := p.store.LoadVerified(step.kind, step.into, manifest); err != nil {
			return nil, err
		}
	}
	c.scaler, c.mapping, c.projection, c.model = &scaler, &mapping, &projection, model
	p.cached = c
	p.logger.Info("artifacts loaded",
		logging.String(logging.FieldRunID, manifest.RunID),
		logging.String("strategy", manifest.Strategy),
		logging.Int("components", manifest.Components),
	)
	return c, nil
}

// Manifest returns the manifest of the servable training run.
func (p *Predictor) Manifest(ctx context.Context) (*artifact.Manifest, error) {
	var manifest *artifact.Manifest
	err := p.store.WithReadLock(ctx, func() error {
		var err error
		manifest, err = p.store.ReadManifest()
		return err
	})
	return manifest, err
}

// Health reports whether a complete artifact set is servable.
func (p *Predictor) Health(ctx context.Context) stage.Health {
	manifest, err := p.Manifest(ctx)
	if err != nil {
		return stage.Unhealthy("model", err.Error())
	}
	health := stage.Healthy("model")
	health.Detail = fmt.Sprintf("%s from run %s", manifest.Strategy, manifest.RunID)
	return health
}

func sameRun(a, b *artifact.Manifest) bool {
	return a.RunID == b.RunID && maps.Equal(a.Digests, b.Digests)
}

// canonicalRecord maps keys through the column cleaner so raw header names
// and canonical names are both accepted.
func canonicalRecord(record map[string]float64) (*dataset.Matrix, error) {
	if len(record) == 0 {
		return nil, stage.Wrap(stage.ErrValidation, "predict", "record", "record has no features", nil)
	}
	canonical := make(map[string]float64, len(record))
	for _, name := range slices.Sorted(maps.Keys(record)) {
		value := record[name]
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, stage.Wrap(stage.ErrValidation, "predict", "record", fmt.Sprintf("feature %q is not a finite number", name), nil)
		}
		key := cleaning.CanonicalName(name)
		if _, dup := canonical[key]; dup {
			return nil, stage.Wrap(stage.ErrValidation, "predict", "record", fmt.Sprintf("feature %q given more than once", key), nil)
		}
		canonical[key] = value
	}
	return dataset.FromRecord(canonical), nil
}
