package models

import "time"

// Fold is one rolling-window (train, validation) pair expressed as half-open
// index intervals over a sorted dataset. Validation always starts where the
// train range ends, so every validation row is strictly later in time.
type Fold struct {
	ID         int `json:"id"`
	TrainStart int `json:"train_start"`
	TrainEnd   int `json:"train_end"`
	ValStart   int `json:"val_start"`
	ValEnd     int `json:"val_end"`
}

// Candidate is one immutable hyperparameter configuration. Params holds one
// numeric value per tunable parameter; categorical dimensions are declared as
// numeric levels and mapped by the learner adapter.
type Candidate struct {
	ID     int                `json:"id"`
	Params map[string]float64 `json:"params"`
}

// MetricRecord is the outcome of evaluating one (fold, candidate) pair.
// Produced exactly once per pair and never mutated. Failed records carry the
// failure reason in Error and are excluded from aggregation.
type MetricRecord struct {
	FoldID      int     `json:"fold_id"`
	CandidateID int     `json:"candidate_id"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Failed      bool    `json:"failed,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// SelectionResult is the winning candidate plus the full metric table for audit.
type SelectionResult struct {
	CandidateID int                `json:"candidate_id"`
	Params      map[string]float64 `json:"params"`
	MeanScore   float64            `json:"mean_score"`
	Metric      string             `json:"metric"`
	Records     []MetricRecord     `json:"records,omitempty"`
}

// Confusion is a binary confusion matrix at the 0.5 threshold.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Precision returns TP / (TP + FP), or 0 when undefined.
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns TP / (TP + FN), or 0 when undefined.
func (c Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// FinalReport is the terminal output of the one-shot refit and holdout scoring.
// It is descriptive only and never feeds back into selection.
type FinalReport struct {
	RunID       string             `json:"run_id"`
	CandidateID int                `json:"candidate_id"`
	Params      map[string]float64 `json:"params"`
	Metric      string             `json:"metric"`
	Score       float64            `json:"score"`
	Accuracy    float64            `json:"accuracy"`
	Confusion   Confusion          `json:"confusion"`
	TrainRows   int                `json:"train_rows"`
	TestRows    int                `json:"test_rows"`
	Folds       int                `json:"folds"`
	Candidates  int                `json:"candidates"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// TuneRequest describes one tuning run. Zero values fall back to the
// configured tuning defaults.
type TuneRequest struct {
	RunID    string    `json:"run_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Lookback int       `json:"lookback"`
	Assess   int       `json:"assess"`
	Step     int       `json:"step"`
	Size     int       `json:"size"`
	Seed     int       `json:"seed"`
	Metric   string    `json:"metric"`
}

// Run lifecycle states tracked by the run registry.
const (
	RunQueued   = "queued"
	RunRunning  = "running"
	RunFinished = "finished"
	RunFailed   = "failed"
)

// Pipeline stages reported in progress events and error context.
const (
	StageLoad     = "load"
	StageSplit    = "split"
	StageSample   = "sample"
	StageEvaluate = "evaluate"
	StageSelect   = "select"
	StageFinalize = "finalize"
	StagePublish  = "publish"
)

// RunEvent is one progress event emitted during a tuning run.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunState is the registry view of one run.
type RunState struct {
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Selection  *SelectionResult `json:"selection,omitempty"`
	Report     *FinalReport     `json:"report,omitempty"`
	Records    []MetricRecord   `json:"-"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
}
