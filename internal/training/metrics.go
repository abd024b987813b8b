package training

import (
	"fmt"
	"slices"

	"genrecast/internal/stage"
)

// Metric names a scoring function over true and predicted codes.
type Metric string

const (
	MetricMacroF1  Metric = "macro_f1"
	MetricAccuracy Metric = "accuracy"
)

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricMacroF1, MetricAccuracy:
		return Metric(name), nil
	}
	return "", stage.Wrap(stage.ErrConfiguration, "train", "metric",
		fmt.Sprintf("unknown metric %q (want macro_f1 or accuracy)", name), nil)
}

// Score computes the metric directly from predictions.
func (m Metric) Score(yTrue, yPred []int) float64 {
	if m == MetricAccuracy {
		return Accuracy(yTrue, yPred)
	}
	return MacroF1(yTrue, yPred)
}

// Of reads the metric from a computed report.
func (m Metric) Of(r *Report) float64 {
	if m == MetricAccuracy {
		return r.Accuracy
	}
	return r.MacroF1
}

// Accuracy is the fraction of matching codes. Empty input scores 0.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	hits := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue))
}

// MacroF1 is the unweighted mean of per-class F1 over every code present in
// either yTrue or yPred. Zero-division inside a class scores 0.
func MacroF1(yTrue, yPred []int) float64 {
	codes := presentCodes(yTrue, yPred)
	if len(codes) == 0 {
		return 0
	}
	sum := 0.0
	for _, code := range codes {
		_, _, f1, _ := classScores(yTrue, yPred, code)
		sum += f1
	}
	return sum / float64(len(codes))
}

func presentCodes(yTrue, yPred []int) []int {
	codes := append(slices.Clone(yTrue), yPred...)
	slices.Sort(codes)
	return slices.Compact(codes)
}

func classScores(yTrue, yPred []int, code int) (precision, recall, f1 float64, support int) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yTrue[i] == code && yPred[i] == code:
			tp++
		case yPred[i] == code:
			fp++
		case yTrue[i] == code:
			fn++
		}
	}
	support = tp + fn
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1, support
}
