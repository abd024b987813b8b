package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"genrecast/internal/pipeline"
	"genrecast/internal/training"
)

type candidateView struct {
	Strategy string           `json:"strategy"`
	Params   string           `json:"params"`
	Selected bool             `json:"selected"`
	Report   *training.Report `json:"report"`
}

type trainView struct {
	RunID          string             `json:"run_id"`
	RunLog         string             `json:"run_log,omitempty"`
	Rows           int                `json:"rows"`
	TrainRows      int                `json:"train_rows"`
	TestRows       int                `json:"test_rows"`
	Labels         []string           `json:"labels"`
	Components     int                `json:"components"`
	ExplainedRatio float64            `json:"explained_ratio"`
	Metric         training.Metric    `json:"metric"`
	Selected       string             `json:"selected"`
	SelectedParams string             `json:"selected_params"`
	Score          float64            `json:"score"`
	Tuned          bool               `json:"tuned"`
	CrossVal       *training.CVResult `json:"cross_validation,omitempty"`
	Candidates     []candidateView    `json:"candidates"`
	Report         *training.Report   `json:"report"`
	DurationMillis int64              `json:"duration_ms"`
}

func newTrainView(r *pipeline.Result) trainView {
	view := trainView{
		RunID:          r.RunID,
		RunLog:         r.RunLogPath,
		Rows:           r.Rows,
		TrainRows:      r.TrainRows,
		TestRows:       r.TestRows,
		Labels:         r.Labels,
		Components:     r.Components,
		ExplainedRatio: r.ExplainedRatio,
		Metric:         r.Metric,
		Selected:       r.Selected,
		SelectedParams: r.SelectedParams.String(),
		Score:          r.Score(),
		Tuned:          r.Tuned,
		CrossVal:       r.CrossVal,
		Report:         r.SelectedReport,
		DurationMillis: r.Duration.Milliseconds(),
	}
	for _, c := range r.Candidates {
		view.Candidates = append(view.Candidates, candidateView{
			Strategy: c.Strategy,
			Params:   c.Params.String(),
			Selected: c.Strategy == r.Selected,
			Report:   c.Report,
		})
	}
	return view
}

func printTrainResult(out io.Writer, r *pipeline.Result) {
	fmt.Fprintf(out, "Run:         %s\n", r.RunID)
	fmt.Fprintf(out, "Rows:        %d (train %d, test %d)\n", r.Rows, r.TrainRows, r.TestRows)
	fmt.Fprintf(out, "Components:  %d (%.1f%% variance)\n", r.Components, r.ExplainedRatio*100)
	fmt.Fprintf(out, "Selected:    %s %s\n", r.Selected, r.SelectedParams.String())
	if r.Tuned {
		fmt.Fprintln(out, "Tuned:       yes")
	}
	fmt.Fprintf(out, "Score:       %s %s\n", r.Metric, formatScore(r.Score()))
	if r.CrossVal != nil {
		fmt.Fprintf(out, "Cross-val:   %s %s ± %s over %d folds\n",
			r.CrossVal.Metric, formatScore(r.CrossVal.Mean), formatScore(r.CrossVal.Std), len(r.CrossVal.Scores))
	}
	fmt.Fprintf(out, "Elapsed:     %s\n", r.Duration.Round(time.Millisecond))
	if r.RunLogPath != "" {
		fmt.Fprintf(out, "Run log:     %s\n", r.RunLogPath)
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		marker := ""
		if c.Strategy == r.Selected {
			marker = "*"
		}
		rows = append(rows, []string{
			c.Strategy,
			c.Params.String(),
			formatScore(c.Report.Accuracy),
			formatScore(c.Report.MacroF1),
			marker,
		})
	}
	fmt.Fprintln(out, renderTable("Candidates",
		[]string{"Strategy", "Params", "Accuracy", "Macro F1", "Selected"},
		rows, 2, 3,
	))
	printReport(out, r.SelectedReport)
}

// printReport renders per-class metrics and the confusion matrix.
func printReport(out io.Writer, report *training.Report) {
	if report == nil {
		return
	}
	rows := make([][]string, 0, len(report.Classes))
	for _, c := range report.Classes {
		rows = append(rows, []string{
			c.Label,
			formatScore(c.Precision),
			formatScore(c.Recall),
			formatScore(c.F1),
			strconv.Itoa(c.Support),
		})
	}
	fmt.Fprintln(out, renderTable("Per-genre metrics",
		[]string{"Genre", "Precision", "Recall", "F1", "Support"},
		rows, 1, 2, 3, 4,
	))

	headers := append([]string{"True \\ Predicted"}, report.Labels...)
	numeric := make([]int, 0, len(report.Labels))
	for i := range report.Labels {
		numeric = append(numeric, i+1)
	}
	matrix := make([][]string, 0, len(report.Confusion))
	for i, counts := range report.Confusion {
		row := []string{report.Labels[i]}
		for _, n := range counts {
			row = append(row, strconv.Itoa(n))
		}
		matrix = append(matrix, row)
	}
	fmt.Fprintln(out, renderTable("Confusion matrix", headers, matrix, numeric...))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
