// Package metrics exposes Prometheus instruments for training stages and
// prediction traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"genrecast/internal/stage"
)

const namespace = "genrecast"

var (
	// StageDuration measures each pipeline stage by outcome.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage", "outcome"})

	// TrainingRuns counts completed and failed training runs.
	TrainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "training_runs_total",
		Help:      "Total number of training runs by outcome",
	}, []string{"outcome"})

	// Predictions counts prediction requests by outcome.
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Total number of predictions by outcome",
	}, []string{"outcome"})

	// PredictionLatency measures the replay pipeline.
	PredictionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_latency_seconds",
		Help:      "Prediction replay latency in seconds",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// SelectedScore is the primary-metric score of the last selected model.
	SelectedScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "selected_model_score",
		Help:      "Held-out primary metric of the most recently selected model",
	}, []string{"strategy", "metric"})
)

// Outcome labels err as "ok" or its stage error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return stage.Kind(err)
}

// ObserveStage records one stage execution.
func ObserveStage(name string, elapsed time.Duration, err error) {
	StageDuration.WithLabelValues(name, Outcome(err)).Observe(elapsed.Seconds())
}

// RecordRun counts a finished training run.
func RecordRun(err error) {
	TrainingRuns.WithLabelValues(Outcome(err)).Inc()
}

// RecordPrediction counts one prediction and its latency.
func RecordPrediction(elapsed time.Duration, err error) {
	Predictions.WithLabelValues(Outcome(err)).Inc()
	PredictionLatency.Observe(elapsed.Seconds())
}

// RecordSelection publishes the selected model score.
func RecordSelection(strategy, metric string, score float64) {
	SelectedScore.Reset()
	SelectedScore.WithLabelValues(strategy, metric).Set(score)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
