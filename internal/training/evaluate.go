package training

import (
	"fmt"

	"genrecast/internal/classify"
	"genrecast/internal/stage"
)

// ClassMetrics is one row of the classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is the held-out evaluation of one classifier.
type Report struct {
	Accuracy float64        `json:"accuracy"`
	MacroF1  float64        `json:"macro_f1"`
	Classes  []ClassMetrics `json:"classes"`
	// Confusion is indexed [true][predicted] over Labels.
	Confusion [][]int  `json:"confusion"`
	Labels    []string `json:"labels"`
}

// Evaluate predicts x with model and scores against y. labels decodes class
// codes for the report and sizes the confusion matrix.
func Evaluate(model classify.Classifier, x [][]float64, y []int, labels []string) (*Report, error) {
	if len(x) == 0 {
		return nil, stage.Wrap(stage.ErrValidation, "evaluate", model.Name(), "no held-out rows", nil)
	}
	pred, err := model.Predict(x)
	if err != nil {
		return nil, err
	}
	return NewReport(y, pred, labels)
}

// NewReport builds the metric set from true and predicted codes.
func NewReport(yTrue, yPred []int, labels []string) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, stage.Wrap(stage.ErrValidation, "evaluate", "report",
			fmt.Sprintf("%d true labels but %d predictions", len(yTrue), len(yPred)), nil)
	}
	k := len(labels)
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= k || p < 0 || p >= k {
			return nil, stage.Wrap(stage.ErrUnknownLabel, "evaluate", "report",
				fmt.Sprintf("code outside [0, %d): true %d predicted %d", k, t, p), nil)
		}
		confusion[t][p]++
	}

	report := &Report{
		Accuracy:  Accuracy(yTrue, yPred),
		MacroF1:   MacroF1(yTrue, yPred),
		Confusion: confusion,
		Labels:    labels,
	}
	for _, code := range presentCodes(yTrue, yPred) {
		precision, recall, f1, support := classScores(yTrue, yPred, code)
		report.Classes = append(report.Classes, ClassMetrics{
			Label:     labels[code],
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support,
		})
	}
	return report, nil
}
