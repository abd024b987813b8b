package training

import (
	"context"
	"log/slog"
	"time"

	"genrecast/internal/classify"
	"genrecast/internal/logging"
)

// Candidate is one fitted strategy and, once evaluated, its report.
type Candidate struct {
	Strategy string
	Model    classify.Classifier
	Report   *Report
	Elapsed  time.Duration
}

// ModelSet is every fitted strategy in registry order plus the held-out
// split they were trained against.
type ModelSet struct {
	Candidates []Candidate
	Split      *Split
}

// Lookup returns the candidate for strategy.
func (s *ModelSet) Lookup(strategy string) (*Candidate, bool) {
	for i := range s.Candidates {
		if s.Candidates[i].Strategy == strategy {
			return &s.Candidates[i], true
		}
	}
	return nil, false
}

// Trainer fits strategies on a shared split.
type Trainer struct {
	seed   uint64
	logger *slog.Logger
}

// NewTrainer returns a trainer seeding stochastic strategies with seed.
func NewTrainer(seed uint64, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Trainer{seed: seed, logger: logger}
}

// TrainModels fits each strategy with its default parameters on the training
// side of split. A fit failure aborts the remaining strategies.
func (t *Trainer) TrainModels(ctx context.Context, strategies []classify.Strategy, split *Split) (*ModelSet, error) {
	set := &ModelSet{Split: split}
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model := strategy.New(nil, t.seed)
		start := time.Now()
		if err := model.Fit(split.XTrain, split.YTrain); err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		t.logger.Debug("strategy fitted",
			logging.String("strategy", strategy.Name),
			logging.String("params", model.Params().String()),
			logging.Duration("elapsed", elapsed),
		)
		set.Candidates = append(set.Candidates, Candidate{Strategy: strategy.Name, Model: model, Elapsed: elapsed})
	}
	return set, nil
}

// EvaluateAll scores every candidate against the held-out split.
func (t *Trainer) EvaluateAll(set *ModelSet, labels []string) error {
	for i := range set.Candidates {
		c := &set.Candidates[i]
		report, err := Evaluate(c.Model, set.Split.XTest, set.Split.YTest, labels)
		if err != nil {
			return err
		}
		c.Report = report
		t.logger.Info("strategy evaluated",
			logging.String("strategy", c.Strategy),
			logging.Float64("accuracy", report.Accuracy),
			logging.Float64("macro_f1", report.MacroF1),
		)
	}
	return nil
}
