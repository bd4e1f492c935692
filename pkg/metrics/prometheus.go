package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations  *prometheus.CounterVec
	evalDuration prometheus.Histogram
	runs         *prometheus.CounterVec
	bestScore    *prometheus.GaugeVec
	datasetRows  prometheus.Gauge
	errorsTotal  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		evaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voltune_evaluations_total",
				Help: "Total number of fold/candidate evaluations",
			},
			[]string{"status"},
		),
		evalDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voltune_evaluation_duration_seconds",
				Help:    "Duration of a single fit-then-score evaluation in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		runs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voltune_runs_total",
				Help: "Total number of tuning runs by final status",
			},
			[]string{"status"},
		),
		bestScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "voltune_best_score",
				Help: "Mean validation score of the most recently selected candidate",
			},
			[]string{"metric"},
		),
		datasetRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "voltune_dataset_rows",
				Help: "Row count of the most recently loaded panel",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voltune_errors_total",
				Help: "Total number of errors encountered by pipeline stage",
			},
			[]string{"stage"},
		),
	}
}

// RecordEvaluation counts one fold/candidate evaluation by outcome.
func (r *Recorder) RecordEvaluation(status string) {
	r.evaluations.WithLabelValues(status).Inc()
}

// RecordEvalDuration records the wall time of one evaluation.
func (r *Recorder) RecordEvalDuration(seconds float64) {
	r.evalDuration.Observe(seconds)
}

// RecordRun counts a finished tuning run by status.
func (r *Recorder) RecordRun(status string) {
	r.runs.WithLabelValues(status).Inc()
}

// RecordBestScore records the winning candidate's mean validation score.
func (r *Recorder) RecordBestScore(metric string, score float64) {
	r.bestScore.WithLabelValues(metric).Set(score)
}

// RecordDatasetRows records the size of the loaded panel.
func (r *Recorder) RecordDatasetRows(rows int) {
	r.datasetRows.Set(float64(rows))
}

// RecordError records an error occurrence by pipeline stage.
func (r *Recorder) RecordError(stage string) {
	r.errorsTotal.WithLabelValues(stage).Inc()
}
