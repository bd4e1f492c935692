package repository

import (
	"context"
	"time"

	"VolTune/internal/domain/models"
)

// DatasetStore loads the already-cleaned firm-month panel, sorted ascending by
// timestamp. The store is the upstream data boundary: missing values and typing
// are resolved before rows ever reach the tuning engine.
type DatasetStore interface {
	LoadPanel(ctx context.Context, from, to time.Time) (*models.Dataset, error)
	Health(ctx context.Context) error
	Close() error
}

// FittedModel is an opaque trained model owned by whichever evaluator produced
// it. Fold-local models are discarded after scoring.
type FittedModel interface{}

// Learner is the capability boundary around the external gradient-boosted-tree
// trainer. Failures (e.g. a single-class training slice) are recoverable
// per-pair failures, never process-fatal.
type Learner interface {
	Fit(ctx context.Context, train *models.Dataset, cand models.Candidate) (FittedModel, error)
	Predict(ctx context.Context, m FittedModel, data *models.Dataset) ([]float64, error)
}

// ReportSink receives selection results and final reports for downstream
// reporting. Out-of-process consumers handle plotting and report generation.
type ReportSink interface {
	PublishSelection(ctx context.Context, runID string, sel *models.SelectionResult) error
	PublishReport(ctx context.Context, report *models.FinalReport) error
	Close() error
}

// ReportCache persists finished run state so the API can serve results after
// the in-memory registry is gone.
type ReportCache interface {
	SaveRun(ctx context.Context, state *models.RunState) error
	GetRun(ctx context.Context, runID string) (*models.RunState, error)
	Health(ctx context.Context) error
}

// Metrics records tuning observability signals.
type Metrics interface {
	RecordEvaluation(status string)
	RecordEvalDuration(seconds float64)
	RecordRun(status string)
	RecordBestScore(metric string, value float64)
	RecordDatasetRows(n int)
	RecordError(stage string)
}
