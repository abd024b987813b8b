package training_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"genrecast/internal/classify"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
	"genrecast/internal/training"
)

// twoClusters returns perClass rows per class around (-3,-3) and (3,3).
func twoClusters(perClass int) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(3, 5))
	var x [][]float64
	var y []int
	for range perClass {
		for class, centre := range []float64{-3, 3} {
			x = append(x, []float64{centre + rng.Float64() - 0.5, centre + rng.Float64() - 0.5})
			y = append(y, class)
		}
	}
	return x, y
}

func TestStratifiedSplitIsDeterministic(t *testing.T) {
	_, y := twoClusters(20)
	trainA, testA, err := training.StratifiedSplit(y, 0.25, 42)
	if err != nil {
		t.Fatalf("StratifiedSplit returned error: %v", err)
	}
	trainB, testB, err := training.StratifiedSplit(y, 0.25, 42)
	if err != nil {
		t.Fatalf("StratifiedSplit returned error: %v", err)
	}
	if !slices.Equal(trainA, trainB) || !slices.Equal(testA, testB) {
		t.Fatal("same seed produced different partitions")
	}
	if len(trainA)+len(testA) != len(y) {
		t.Fatalf("partition sizes %d+%d do not cover %d rows", len(trainA), len(testA), len(y))
	}
}

func TestStratifiedSplitPreservesProportions(t *testing.T) {
	y := make([]int, 0, 40)
	for i := range 40 {
		if i < 30 {
			y = append(y, 0)
		} else {
			y = append(y, 1)
		}
	}
	_, test, err := training.StratifiedSplit(y, 0.2, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit returned error: %v", err)
	}
	counts := map[int]int{}
	for _, r := range test {
		counts[y[r]]++
	}
	if counts[0] != 6 || counts[1] != 2 {
		t.Fatalf("test class counts: got %v want map[0:6 1:2]", counts)
	}
}

func TestStratifiedSplitRejectsSingletonClass(t *testing.T) {
	_, _, err := training.StratifiedSplit([]int{0, 0, 0, 1}, 0.25, 1)
	if !errors.Is(err, stage.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMacroF1HandlesImbalance(t *testing.T) {
	yTrue := []int{0, 0, 0, 0, 1}
	yPred := []int{0, 0, 0, 0, 0}
	if got := training.Accuracy(yTrue, yPred); got != 0.8 {
		t.Fatalf("accuracy: got %v want 0.8", got)
	}
	// class 0: p=0.8 r=1 f1=8/9; class 1: f1=0
	want := (8.0 / 9.0) / 2
	if got := training.MacroF1(yTrue, yPred); math.Abs(got-want) > 1e-12 {
		t.Fatalf("macro f1: got %v want %v", got, want)
	}
}

func TestNewReportBuildsConfusionMatrix(t *testing.T) {
	report, err := training.NewReport([]int{0, 1, 1, 0}, []int{0, 1, 0, 0}, []string{"pop", "rock"})
	if err != nil {
		t.Fatalf("NewReport returned error: %v", err)
	}
	want := [][]int{{2, 0}, {1, 1}}
	for i := range want {
		if !slices.Equal(report.Confusion[i], want[i]) {
			t.Fatalf("confusion row %d: got %v want %v", i, report.Confusion[i], want[i])
		}
	}
	if len(report.Classes) != 2 || report.Classes[1].Label != "rock" || report.Classes[1].Support != 2 {
		t.Fatalf("unexpected class report: %+v", report.Classes)
	}
	if report.Classes[1].Recall != 0.5 {
		t.Fatalf("rock recall: got %v want 0.5", report.Classes[1].Recall)
	}
}

func candidates(scores ...float64) []training.Candidate {
	out := make([]training.Candidate, len(scores))
	for i, s := range scores {
		out[i] = training.Candidate{
			Strategy: fmt.Sprintf("candidate-%d", i),
			Report:   &training.Report{MacroF1: s, Accuracy: 1 - s},
		}
	}
	return out
}

func TestSelectBestKeepsEarlierOnTie(t *testing.T) {
	cands := candidates(0.7, 0.9, 0.9)
	best, err := training.SelectBest(cands, training.MetricMacroF1)
	if err != nil {
		t.Fatalf("SelectBest returned error: %v", err)
	}
	if best.Strategy != cands[1].Strategy {
		t.Fatalf("selected %q want %q", best.Strategy, cands[1].Strategy)
	}
}

func TestSelectBestNeverReturnsStrictlyWorst(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		scores := make([]float64, 2+rng.IntN(4))
		for i := range scores {
			scores[i] = float64(rng.IntN(5)) / 4
		}
		cands := candidates(scores...)
		best, err := training.SelectBest(cands, training.MetricMacroF1)
		if err != nil {
			t.Fatalf("SelectBest returned error: %v", err)
		}
		if best.Report.MacroF1 != slices.Max(scores) {
			t.Fatalf("scores %v: selected %v", scores, best.Report.MacroF1)
		}
	}
}

func TestSelectBestUsesConfiguredMetric(t *testing.T) {
	cands := candidates(0.9, 0.5)
	best, err := training.SelectBest(cands, training.MetricAccuracy)
	if err != nil {
		t.Fatalf("SelectBest returned error: %v", err)
	}
	if best.Strategy != cands[1].Strategy {
		t.Fatalf("selected %q want %q", best.Strategy, cands[1].Strategy)
	}
}

func TestParseMetricRejectsUnknown(t *testing.T) {
	if _, err := training.ParseMetric("roc_auc"); !errors.Is(err, stage.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTrainEvaluateSelectOnSeparableData(t *testing.T) {
	x, y := twoClusters(15)
	split, err := training.NewSplit(x, y, 0.2, 42)
	if err != nil {
		t.Fatalf("NewSplit returned error: %v", err)
	}
	trainer := training.NewTrainer(42, logging.NewNop())
	set, err := trainer.TrainModels(context.Background(), classify.Registry(), split)
	if err != nil {
		t.Fatalf("TrainModels returned error: %v", err)
	}
	if len(set.Candidates) != len(classify.Registry()) {
		t.Fatalf("candidates: got %d want %d", len(set.Candidates), len(classify.Registry()))
	}
	if err := trainer.EvaluateAll(set, []string{"pop", "rock"}); err != nil {
		t.Fatalf("EvaluateAll returned error: %v", err)
	}
	best, err := training.SelectBest(set.Candidates, training.MetricMacroF1)
	if err != nil {
		t.Fatalf("SelectBest returned error: %v", err)
	}
	if best.Strategy != classify.LogisticRegressionName || best.Report.MacroF1 != 1 {
		t.Fatalf("expected logistic regression with perfect score, got %s %v", best.Strategy, best.Report.MacroF1)
	}
}

func TestStratifiedKFoldCoversEveryRowOnce(t *testing.T) {
	_, y := twoClusters(7)
	folds, err := training.StratifiedKFold(y, 5)
	if err != nil {
		t.Fatalf("StratifiedKFold returned error: %v", err)
	}
	seen := map[int]int{}
	for _, fold := range folds {
		for _, r := range fold {
			seen[r]++
		}
	}
	if len(seen) != len(y) {
		t.Fatalf("covered %d rows want %d", len(seen), len(y))
	}
	for r, n := range seen {
		if n != 1 {
			t.Fatalf("row %d appears in %d folds", r, n)
		}
	}
}

func TestCrossValidateReportsMeanAndStd(t *testing.T) {
	x, y := twoClusters(10)
	strategy, _ := classify.Lookup(classify.KNearestNeighborsName)
	result, err := training.CrossValidate(context.Background(), func() classify.Classifier {
		return strategy.New(classify.Params{"k": 3}, 1)
	}, x, y, 5, training.MetricMacroF1)
	if err != nil {
		t.Fatalf("CrossValidate returned error: %v", err)
	}
	if len(result.Scores) != 5 {
		t.Fatalf("scores: got %d want 5", len(result.Scores))
	}
	if result.Mean != 1 || result.Std != 0 {
		t.Fatalf("mean/std: got %v/%v want 1/0", result.Mean, result.Std)
	}
}

func TestCrossValidateRejectsSingleFold(t *testing.T) {
	x, y := twoClusters(3)
	_, err := training.CrossValidate(context.Background(), nil, x, y, 1, training.MetricMacroF1)
	if !errors.Is(err, stage.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCombinationsExpandsSpace(t *testing.T) {
	grid := training.Combinations(map[string][]float64{"k": {3, 5}, "distance_weighted": {0, 1}})
	if len(grid) != 4 {
		t.Fatalf("combinations: got %d want 4", len(grid))
	}
	if got := grid[0].String(); got != "distance_weighted=0 k=3" {
		t.Fatalf("first combination: got %q", got)
	}
}

func TestRandomizedSearchIsSeededAndRefits(t *testing.T) {
	x, y := twoClusters(10)
	strategy, _ := classify.Lookup(classify.KNearestNeighborsName)
	opts := training.SearchOptions{Iterations: 4, Folds: 3, Metric: training.MetricMacroF1, Seed: 11}
	first, err := training.RandomizedSearch(context.Background(), strategy, x, y, opts, logging.NewNop())
	if err != nil {
		t.Fatalf("RandomizedSearch returned error: %v", err)
	}
	second, err := training.RandomizedSearch(context.Background(), strategy, x, y, opts, logging.NewNop())
	if err != nil {
		t.Fatalf("RandomizedSearch returned error: %v", err)
	}
	if len(first.Trials) != 4 {
		t.Fatalf("trials: got %d want 4", len(first.Trials))
	}
	for i := range first.Trials {
		if first.Trials[i].Params.String() != second.Trials[i].Params.String() {
			t.Fatalf("trial %d differs between runs", i)
		}
	}
	pred, err := first.Model.Predict([][]float64{{-3, -3}, {3, 3}})
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if !slices.Equal(pred, []int{0, 1}) {
		t.Fatalf("refit predictions: got %v", pred)
	}
}

func TestRandomizedSearchRequiresIterations(t *testing.T) {
	x, y := twoClusters(4)
	strategy, _ := classify.Lookup(classify.KNearestNeighborsName)
	_, err := training.RandomizedSearch(context.Background(), strategy, x, y, training.SearchOptions{Folds: 2}, nil)
	if !errors.Is(err, stage.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
