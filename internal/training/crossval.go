package training

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"genrecast/internal/classify"
	"genrecast/internal/stage"
)

// CVResult summarizes k-fold scores.
type CVResult struct {
	Metric Metric    `json:"metric"`
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// StratifiedKFold assigns every row to one of folds test folds. Rows are
// dealt round-robin in class-major order without shuffling, so each fold
// receives a near-equal share of every class.
func StratifiedKFold(labels []int, folds int) ([][]int, error) {
	if folds < 2 {
		return nil, stage.Wrap(stage.ErrConfiguration, "validate", "folds",
			fmt.Sprintf("need at least 2 folds, got %d", folds), nil)
	}
	if folds > len(labels) {
		return nil, stage.Wrap(stage.ErrValidation, "validate", "folds",
			fmt.Sprintf("%d folds exceed %d rows", folds, len(labels)), nil)
	}
	byClass := map[int][]int{}
	for i, code := range labels {
		byClass[code] = append(byClass[code], i)
	}
	codes := make([]int, 0, len(byClass))
	for code := range byClass {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	out := make([][]int, folds)
	next := 0
	for _, code := range codes {
		for _, row := range byClass[code] {
			out[next%folds] = append(out[next%folds], row)
			next++
		}
	}
	for i := range out {
		slices.Sort(out[i])
	}
	return out, nil
}

// CrossValidate fits a fresh model from newModel on every training fold and
// scores it on the matching test fold. Std is the population standard
// deviation of the fold scores.
func CrossValidate(ctx context.Context, newModel func() classify.Classifier, x [][]float64, y []int, folds int, metric Metric) (*CVResult, error) {
	assignment, err := StratifiedKFold(y, folds)
	if err != nil {
		return nil, err
	}
	inTest := make([]int, len(y))
	for f, rows := range assignment {
		for _, r := range rows {
			inTest[r] = f
		}
	}

	result := &CVResult{Metric: metric, Scores: make([]float64, 0, folds)}
	for f, testRows := range assignment {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var trainRows []int
		for r := range y {
			if inTest[r] != f {
				trainRows = append(trainRows, r)
			}
		}
		model := newModel()
		if err := model.Fit(pickRows(x, trainRows), pickLabels(y, trainRows)); err != nil {
			return nil, err
		}
		pred, err := model.Predict(pickRows(x, testRows))
		if err != nil {
			return nil, err
		}
		result.Scores = append(result.Scores, metric.Score(pickLabels(y, testRows), pred))
	}
	mean, variance := stat.PopMeanVariance(result.Scores, nil)
	result.Mean, result.Std = mean, math.Sqrt(variance)
	return result, nil
}
