// Package classify provides the pluggable classifier strategies trained by the
// pipeline.
//
// Every strategy implements Classifier over integer class codes in [0, k).
// The registry order is fixed and decides selection tie-breaks. Concrete
// types are registered with encoding/gob so a fitted model persists through
// the Classifier interface.
package classify

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"genrecast/internal/stage"
)

// Params holds numeric hyperparameters by name.
type Params map[string]float64

// String renders params in sorted key order.
func (p Params) String() string {
	keys := slices.Sorted(maps.Keys(p))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(p[k], 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Merge returns a copy of p with overrides applied.
func (p Params) Merge(overrides Params) Params {
	out := maps.Clone(p)
	if out == nil {
		out = Params{}
	}
	maps.Copy(out, overrides)
	return out
}

// Classifier is a supervised multi-class model.
type Classifier interface {
	Name() string
	Fit(x [][]float64, y []int) error
	Predict(x [][]float64) ([]int, error)
	Params() Params
}

// Strategy describes one registered classifier.
type Strategy struct {
	Name     string
	Defaults Params
	// Space lists candidate values per hyperparameter for randomized search.
	Space map[string][]float64
	build func(p Params, seed uint64) Classifier
}

// New builds an unfitted classifier from the defaults merged with overrides.
func (s Strategy) New(overrides Params, seed uint64) Classifier {
	return s.build(s.Defaults.Merge(overrides), seed)
}

const (
	LogisticRegressionName = "logistic_regression"
	KNearestNeighborsName  = "k_nearest_neighbors"
	SupportVectorName      = "support_vector_classifier"
)

// Registry returns every strategy in selection order.
func Registry() []Strategy {
	return []Strategy{
		{
			Name:     LogisticRegressionName,
			Defaults: Params{"c": 1, "learning_rate": 0.1, "max_iter": 1000},
			Space: map[string][]float64{
				"c":             {0.01, 0.1, 1, 10, 100},
				"learning_rate": {0.01, 0.05, 0.1, 0.5},
			},
			build: func(p Params, _ uint64) Classifier { return newLogisticRegression(p) },
		},
		{
			Name:     KNearestNeighborsName,
			Defaults: Params{"k": 5, "distance_weighted": 0},
			Space: map[string][]float64{
				"k":                 {3, 5, 7, 9, 11, 15},
				"distance_weighted": {0, 1},
			},
			build: func(p Params, _ uint64) Classifier { return newKNN(p) },
		},
		{
			Name:     SupportVectorName,
			Defaults: Params{"c": 1, "gamma": 0, "max_passes": 5, "max_iter": 200},
			Space: map[string][]float64{
				"c":     {0.1, 1, 10, 100},
				"gamma": {0, 0.001, 0.01, 0.1, 1},
			},
			build: func(p Params, seed uint64) Classifier { return newSVC(p, seed) },
		},
	}
}

// Names lists the registered strategy names in order.
func Names() []string {
	reg := Registry()
	names := make([]string, len(reg))
	for i, s := range reg {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a strategy by name. Unknown names are stage.ErrConfiguration.
func Lookup(name string) (Strategy, error) {
	for _, s := range Registry() {
		if s.Name == name {
			return s, nil
		}
	}
	return Strategy{}, stage.Wrap(stage.ErrConfiguration, "train", "strategy",
		fmt.Sprintf("unknown strategy %q (want one of %s)", name, strings.Join(Names(), ", ")), nil)
}

// Select resolves names to strategies, keeping registry order regardless of
// the order names are given in.
func Select(names []string) ([]Strategy, error) {
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			return nil, err
		}
	}
	var out []Strategy
	for _, s := range Registry() {
		if slices.Contains(names, s.Name) {
			out = append(out, s)
		}
	}
	return out, nil
}

func checkTrainingData(x [][]float64, y []int) (int, error) {
	if len(x) == 0 {
		return 0, stage.Wrap(stage.ErrValidation, "train", "fit", "no training rows", nil)
	}
	if len(x) != len(y) {
		return 0, stage.Wrap(stage.ErrValidation, "train", "fit",
			fmt.Sprintf("%d feature rows but %d labels", len(x), len(y)), nil)
	}
	classes := 0
	for _, code := range y {
		if code < 0 {
			return 0, stage.Wrap(stage.ErrValidation, "train", "fit", fmt.Sprintf("negative class code %d", code), nil)
		}
		classes = max(classes, code+1)
	}
	return classes, nil
}

func notFitted(name string) error {
	return stage.Wrap(stage.ErrNotFitted, "predict", name, "model has not been fitted", nil)
}

func checkWidth(name string, x [][]float64, width int) error {
	for i, row := range x {
		if len(row) != width {
			return stage.Wrap(stage.ErrContract, "predict", name,
				fmt.Sprintf("row %d has %d features, model expects %d", i, len(row), width), nil)
		}
	}
	return nil
}

// argmax returns the first index of the largest value so ties go to the
// lowest class code.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
