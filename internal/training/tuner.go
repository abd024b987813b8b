package training

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"genrecast/internal/classify"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
)

// SearchOptions configures RandomizedSearch.
type SearchOptions struct {
	Iterations int
	Folds      int
	Metric     Metric
	Seed       uint64
}

// Trial is one sampled parameter combination and its cross-validated score.
type Trial struct {
	Params classify.Params
	CV     *CVResult
}

// SearchResult is the outcome of a randomized search.
type SearchResult struct {
	Strategy string
	Best     Trial
	Trials   []Trial
	// Model is the best combination refit on every supplied row.
	Model classify.Classifier
}

// RandomizedSearch samples up to Iterations distinct combinations from the
// strategy's parameter space, scores each with stratified k-fold
// cross-validation on x and y, and refits the best on all of x and y. Ties
// keep the earlier sampled combination.
func RandomizedSearch(ctx context.Context, strategy classify.Strategy, x [][]float64, y []int, opts SearchOptions, logger *slog.Logger) (*SearchResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Iterations <= 0 {
		return nil, stage.Wrap(stage.ErrConfiguration, "tune", "iterations",
			fmt.Sprintf("iterations must be positive, got %d", opts.Iterations), nil)
	}
	grid := Combinations(strategy.Space)
	rng := rand.New(rand.NewPCG(opts.Seed, 1))
	rng.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
	grid = grid[:min(opts.Iterations, len(grid))]

	trials := make([]Trial, len(grid))
	errs := make([]error, len(grid))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(runtime.GOMAXPROCS(0), len(grid)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				params := grid[i]
				cv, err := CrossValidate(ctx, func() classify.Classifier {
					return strategy.New(params, opts.Seed)
				}, x, y, opts.Folds, opts.Metric)
				trials[i] = Trial{Params: strategy.Defaults.Merge(params), CV: cv}
				errs[i] = err
			}
		}()
	}
	for i := range grid {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	best := -1
	for i, trial := range trials {
		if errs[i] != nil {
			return nil, errs[i]
		}
		logger.Debug("tuning trial scored",
			logging.String("strategy", strategy.Name),
			logging.String("params", trial.Params.String()),
			logging.Float64("mean", trial.CV.Mean),
		)
		if best < 0 || trial.CV.Mean > trials[best].CV.Mean {
			best = i
		}
	}
	if best < 0 {
		return nil, stage.Wrap(stage.ErrConfiguration, "tune", strategy.Name, "parameter space is empty", nil)
	}

	model := strategy.New(trials[best].Params, opts.Seed)
	if err := model.Fit(x, y); err != nil {
		return nil, err
	}
	return &SearchResult{Strategy: strategy.Name, Best: trials[best], Trials: trials, Model: model}, nil
}

// Combinations expands a discrete space into every parameter combination.
// Keys are walked in sorted order so the expansion is stable.
func Combinations(space map[string][]float64) []classify.Params {
	keys := slices.Sorted(maps.Keys(space))
	out := []classify.Params{{}}
	for _, key := range keys {
		var next []classify.Params
		for _, base := range out {
			for _, v := range space[key] {
				p := maps.Clone(base)
				p[key] = v
				next = append(next, p)
			}
		}
		out = next
	}
	if len(keys) == 0 {
		return nil
	}
	return out
}
