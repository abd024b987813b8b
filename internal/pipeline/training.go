package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"genrecast/internal/artifact"
	"genrecast/internal/classify"
	"genrecast/internal/cleaning"
	"genrecast/internal/config"
	"genrecast/internal/dataset"
	"genrecast/internal/features"
	"genrecast/internal/ingestion"
	"genrecast/internal/labels"
	"genrecast/internal/logging"
	"genrecast/internal/metrics"
	"genrecast/internal/reduction"
	"genrecast/internal/runstore"
	"genrecast/internal/stage"
	"genrecast/internal/stageexec"
	"genrecast/internal/training"
)

// Stage names in execution order.
const (
	StageIngest    = "ingest"
	StageClean     = "clean"
	StageSplit     = "split"
	StageTransform = "transform"
	StageEncode    = "encode"
	StageReduce    = "reduce"
	StageTrain     = "train"
	StageEvaluate  = "evaluate"
	StageSelect    = "select"
	StageTune      = "tune"
	StageValidate  = "validate"
	StagePersist   = "persist"
)

// Pipeline runs ingestion and training against one configuration.
type Pipeline struct {
	cfg    *config.Config
	store  *artifact.Store
	runs   *runstore.Store
	logger *slog.Logger
}

// New constructs a Pipeline. runs may be nil to skip run history.
func New(cfg *config.Config, runs *runstore.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		store:  artifact.NewStore(cfg.Paths.ArtifactsDir),
		runs:   runs,
		logger: logger,
	}
}

// Store returns the artifact store the pipeline writes to.
func (p *Pipeline) Store() *artifact.Store { return p.store }

// CandidateResult summarizes one evaluated strategy.
type CandidateResult struct {
	Strategy string
	Params   classify.Params
	Report   *training.Report
}

// Result describes a completed training run.
type Result struct {
	RunID          string
	RunLogPath     string
	Rows           int
	TrainRows      int
	TestRows       int
	FeatureColumns []string
	Labels         []string
	Components     int
	ExplainedRatio float64
	Candidates     []CandidateResult
	Metric         training.Metric
	Selected       string
	SelectedParams classify.Params
	// SelectedReport is the held-out report of the persisted model.
	SelectedReport *training.Report
	Tuned          bool
	Search         *training.SearchResult
	CrossVal       *training.CVResult
	Manifest       *artifact.Manifest
	Duration       time.Duration
}

// Score is the held-out primary metric of the persisted model.
func (r *Result) Score() float64 {
	return r.Metric.Of(r.SelectedReport)
}

// run carries state between training stages.
type run struct {
	frame      *dataset.Frame
	features   *dataset.Matrix
	labels     []string
	trainIdx   []int
	testIdx    []int
	yTrain     []int
	yTest      []int
	yAll       []int
	scaled     [3]*dataset.Matrix
	reduced    [3]*dataset.Matrix
	set        *training.ModelSet
	best       *training.Candidate
	model      classify.Classifier
	strategy   classify.Strategy
	params     classify.Params
	report     *training.Report
	projection *reduction.Projection
	mapping    *labels.Mapping
}

const (
	partTrain = iota
	partTest
	partAll
)

// RunError attaches the run ID to a failed training run.
type RunError struct {
	RunID string
	Err   error
}

func (e *RunError) Error() string { return e.Err.Error() }

func (e *RunError) Unwrap() error { return e.Err }

// Train runs every stage in order under the artifact write lock. Any stage
// failure aborts the run; the manifest from the previous run has already been
// removed, so prediction reports not fitted until a run succeeds.
func (p *Pipeline) Train(ctx context.Context) (*Result, error) {
	started := time.Now()
	metric, err := training.ParseMetric(p.cfg.Training.PrimaryMetric)
	if err != nil {
		return nil, err
	}
	strategies, err := classify.Select(p.cfg.Training.Strategies)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if p.runs != nil {
		record, err := p.runs.Begin(ctx, p.cfg.Paths.RawData)
		if err != nil {
			return nil, fmt.Errorf("begin run: %w", err)
		}
		runID = record.ID
	}
	ctx = stage.WithRunID(ctx, runID)

	logger := logging.WithContext(ctx, p.logger)
	runLog, err := logging.OpenRunLog(p.cfg.Paths.LogDir, runID, logger)
	if err != nil {
		logger.Warn("run log unavailable", logging.Error(err))
	} else {
		logger = runLog.Logger
		defer func() { _ = runLog.Close() }()
	}

	result := &Result{RunID: runID, Metric: metric}
	if runLog != nil {
		result.RunLogPath = runLog.Path
	}
	logger.Info("training started",
		logging.String("raw_data", p.cfg.Paths.RawData),
		logging.Strings("strategies", namesOf(strategies)),
		logging.String("metric", string(metric)),
	)

	err = p.store.WithWriteLock(ctx, func() error {
		if err := p.store.Invalidate(); err != nil {
			return err
		}
		return p.train(ctx, logger, strategies, metric, result)
	})
	result.Duration = time.Since(started)
	metrics.RecordRun(err)

	if err != nil {
		logger.Error("training failed",
			logging.ErrorKind(err),
			logging.Error(err),
		)
		if p.runs != nil {
			if failErr := p.runs.Fail(context.WithoutCancel(ctx), runID, err); failErr != nil {
				logger.Warn("record run failure", logging.Error(failErr))
			}
		}
		return nil, &RunError{RunID: runID, Err: err}
	}

	if p.runs != nil {
		if err := p.recordRun(ctx, result); err != nil {
			logger.Warn("record run outcome", logging.Error(err))
		}
	}
	metrics.RecordSelection(result.Selected, string(metric), result.Score())
	logger.Info("training completed",
		logging.String("strategy", result.Selected),
		logging.Float64(string(metric), result.Score()),
		logging.Float64("cv_mean", result.CrossVal.Mean),
		logging.Float64("cv_std", result.CrossVal.Std),
		logging.Duration("elapsed", result.Duration),
	)
	return result, nil
}

func (p *Pipeline) train(ctx context.Context, logger *slog.Logger, strategies []classify.Strategy, metric training.Metric, result *Result) error {
	r := &run{}
	loader := ingestion.NewLoader(p.cfg.Paths.RawData, p.cfg.Paths.ProcessedData, logger)
	transformer := features.NewTransformer(p.store, logger)
	encoder := labels.NewEncoder(p.store, logger)
	reducer := reduction.NewReducer(p.store, logger)
	trainer := training.NewTrainer(p.cfg.Training.Seed, logger)
	seed := p.cfg.Training.Seed

	steps := []struct {
		name string
		fn   stageexec.Func
	}{
		{StageIngest, func(context.Context, *slog.Logger) error {
			frame, err := p.load(loader)
			r.frame = frame
			return err
		}},
		{StageClean, func(_ context.Context, stageLogger *slog.Logger) error {
			cleaned, err := p.clean(r.frame, loader, stageLogger)
			if err != nil {
				return err
			}
			r.frame = cleaned
			return p.extract(r)
		}},
		{StageSplit, func(context.Context, *slog.Logger) error {
			// Stratify on the sorted label order; the encoder fitted on the
			// training side assigns the same codes since every class keeps a
			// training row.
			strata, err := labels.FitMapping(r.labels).Encode(r.labels)
			if err != nil {
				return err
			}
			r.trainIdx, r.testIdx, err = training.StratifiedSplit(strata, p.cfg.Training.TestFraction, seed)
			return err
		}},
		{StageTransform, func(context.Context, *slog.Logger) error {
			scaledTrain, _, err := transformer.Fit(r.features.Subset(r.trainIdx))
			if err != nil {
				return err
			}
			r.scaled[partTrain] = scaledTrain
			if r.scaled[partTest], err = transformer.Transform(r.features.Subset(r.testIdx)); err != nil {
				return err
			}
			r.scaled[partAll], err = transformer.Transform(r.features)
			return err
		}},
		{StageEncode, func(context.Context, *slog.Logger) error {
			var err error
			if r.yTrain, r.mapping, err = encoder.FitTransform(pick(r.labels, r.trainIdx)); err != nil {
				return err
			}
			if r.yTest, err = encoder.Transform(pick(r.labels, r.testIdx)); err != nil {
				return err
			}
			r.yAll, err = encoder.Transform(r.labels)
			return err
		}},
		{StageReduce, func(context.Context, *slog.Logger) error {
			retain := reduction.Retain{Fraction: p.cfg.Reduction.VarianceFraction, Components: p.cfg.Reduction.Components}
			reducedTrain, projection, err := reducer.FitTransform(r.scaled[partTrain], retain)
			if err != nil {
				return err
			}
			r.reduced[partTrain], r.projection = reducedTrain, projection
			if r.reduced[partTest], err = reducer.Transform(r.scaled[partTest]); err != nil {
				return err
			}
			r.reduced[partAll], err = reducer.Transform(r.scaled[partAll])
			return err
		}},
		{StageTrain, func(ctx context.Context, _ *slog.Logger) error {
			split := &training.Split{
				TrainIndex: r.trainIdx,
				TestIndex:  r.testIdx,
				XTrain:     r.reduced[partTrain].Data,
				YTrain:     r.yTrain,
				XTest:      r.reduced[partTest].Data,
				YTest:      r.yTest,
			}
			var err error
			r.set, err = trainer.TrainModels(ctx, strategies, split)
			return err
		}},
		{StageEvaluate, func(context.Context, *slog.Logger) error {
			return trainer.EvaluateAll(r.set, r.mapping.Classes)
		}},
		{StageSelect, func(_ context.Context, stageLogger *slog.Logger) error {
			best, err := training.SelectBest(r.set.Candidates, metric)
			if err != nil {
				return err
			}
			r.best, r.model, r.report = best, best.Model, best.Report
			r.params = best.Model.Params()
			if r.strategy, err = classify.Lookup(best.Strategy); err != nil {
				return err
			}
			stageLogger.Info("strategy selected",
				logging.String("strategy", best.Strategy),
				logging.Float64(string(metric), metric.Of(best.Report)),
			)
			return nil
		}},
		{StageTune, func(ctx context.Context, stageLogger *slog.Logger) error {
			if !p.cfg.Tuning.Enabled {
				stageLogger.Debug("tuning disabled")
				return nil
			}
			search, err := training.RandomizedSearch(ctx, r.strategy, r.reduced[partTrain].Data, r.yTrain, training.SearchOptions{
				Iterations: p.cfg.Tuning.Iterations,
				Folds:      p.cfg.Tuning.Folds,
				Metric:     metric,
				Seed:       seed,
			}, stageLogger)
			if err != nil {
				return err
			}
			report, err := training.Evaluate(search.Model, r.reduced[partTest].Data, r.yTest, r.mapping.Classes)
			if err != nil {
				return err
			}
			result.Tuned, result.Search = true, search
			r.model, r.params, r.report = search.Model, search.Best.Params, report
			stageLogger.Info("tuned parameters chosen",
				logging.String("params", search.Best.Params.String()),
				logging.Float64("cv_mean", search.Best.CV.Mean),
				logging.Float64(string(metric), metric.Of(report)),
			)
			return nil
		}},
		{StageValidate, func(ctx context.Context, stageLogger *slog.Logger) error {
			cv, err := training.CrossValidate(ctx, func() classify.Classifier {
				return r.strategy.New(r.params, seed)
			}, r.reduced[partAll].Data, r.yAll, p.cfg.Training.CVFolds, metric)
			if err != nil {
				return err
			}
			result.CrossVal = cv
			stageLogger.Info("cross-validation scored",
				logging.Int("folds", len(cv.Scores)),
				logging.Float64("mean", cv.Mean),
				logging.Float64("std", cv.Std),
			)
			return nil
		}},
		{StagePersist, func(_ context.Context, stageLogger *slog.Logger) error {
			model := r.model
			path, err := p.store.Save(artifact.KindModel, &model)
			if err != nil {
				return fmt.Errorf("save model: %w", err)
			}
			manifest, err := p.store.WriteManifest(artifact.Manifest{
				RunID:          result.RunID,
				Strategy:       r.best.Strategy,
				Tuned:          result.Tuned,
				FeatureColumns: r.features.Columns,
				Labels:         r.mapping.Classes,
				Components:     len(r.projection.Components),
			})
			if err != nil {
				return err
			}
			result.Manifest = manifest
			stageLogger.Info("model persisted", logging.String("artifact", path))
			return nil
		}},
	}

	for _, step := range steps {
		if err := stageexec.Run(ctx, logger, step.name, step.fn); err != nil {
			return err
		}
	}

	result.Rows = r.frame.Len()
	result.TrainRows, result.TestRows = len(r.trainIdx), len(r.testIdx)
	result.FeatureColumns = r.features.Columns
	result.Labels = r.mapping.Classes
	result.Components = len(r.projection.Components)
	result.ExplainedRatio = r.projection.CumulativeRatio()
	result.Selected = r.best.Strategy
	result.SelectedParams = r.params
	result.SelectedReport = r.report
	for _, c := range r.set.Candidates {
		result.Candidates = append(result.Candidates, CandidateResult{Strategy: c.Strategy, Params: c.Model.Params(), Report: c.Report})
	}
	return nil
}

func (p *Pipeline) load(loader *ingestion.Loader) (*dataset.Frame, error) {
	frame, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := loader.Validate(frame, p.cfg.Dataset.ExpectedColumns); err != nil {
		return nil, err
	}
	return frame, nil
}

func (p *Pipeline) clean(frame *dataset.Frame, loader *ingestion.Loader, logger *slog.Logger) (*dataset.Frame, error) {
	policy, err := cleaning.ParsePolicy(p.cfg.Cleaning.MissingPolicy)
	if err != nil {
		return nil, err
	}
	cleaned, err := cleaning.New(logger).Clean(frame, policy)
	if err != nil {
		return nil, err
	}
	if err := loader.Save(cleaned); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// extract pulls the expected feature columns and the target labels from the
// cleaned frame. Names are canonical at this point.
func (p *Pipeline) extract(r *run) error {
	target := cleaning.CanonicalName(p.cfg.Dataset.Target)
	matrix, err := r.frame.FeatureMatrix(target)
	if err != nil {
		return err
	}
	if r.features, err = matrix.Select(canonicalColumns(p.cfg.FeatureColumns())); err != nil {
		return err
	}
	r.labels, err = r.frame.Labels(target)
	return err
}

func (p *Pipeline) recordRun(ctx context.Context, result *Result) error {
	for _, c := range result.Candidates {
		report, err := json.Marshal(c.Report)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		eval := runstore.Evaluation{
			Strategy:   c.Strategy,
			Params:     c.Params.String(),
			Accuracy:   c.Report.Accuracy,
			MacroF1:    c.Report.MacroF1,
			Selected:   c.Strategy == result.Selected,
			ReportJSON: string(report),
		}
		if err := p.runs.RecordEvaluation(ctx, result.RunID, eval); err != nil {
			return err
		}
	}
	return p.runs.Complete(ctx, result.RunID, runstore.Outcome{
		Rows:          result.Rows,
		Components:    result.Components,
		Strategy:      result.Selected,
		Tuned:         result.Tuned,
		Params:        result.SelectedParams.String(),
		PrimaryMetric: string(result.Metric),
		Score:         result.Score(),
		CVMean:        result.CrossVal.Mean,
		CVStd:         result.CrossVal.Std,
	})
}

func canonicalColumns(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = cleaning.CanonicalName(name)
	}
	return out
}

func namesOf(strategies []classify.Strategy) []string {
	out := make([]string, len(strategies))
	for i, s := range strategies {
		out[i] = s.Name
	}
	return out
}

func pick(values []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, r := range idx {
		out[i] = values[r]
	}
	return out
}
