package tuning

import (
	"context"
	"testing"

	"VolTune/internal/domain/models"
)

func TestFinalizeScoresHoldoutOnce(t *testing.T) {
	ds := syntheticPanel(500, 4, 11)
	train, test, err := HoldoutSplit(ds, 0.2)
	if err != nil {
		t.Fatalf("holdout: %v", err)
	}

	learner := &fakeLearner{}
	cand := models.Candidate{ID: 3, Params: map[string]float64{"depth": 6}}
	model, report, err := Finalize(context.Background(), learner, cand, train, test, MetricAUC)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if model == nil {
		t.Fatal("final refit must return the fitted model")
	}
	if learner.fits != 1 {
		t.Fatalf("got %d fits, want exactly 1", learner.fits)
	}
	if report.CandidateID != 3 {
		t.Fatalf("report candidate %d, want 3", report.CandidateID)
	}
	if report.Score <= 0.5 {
		t.Fatalf("separable holdout scored %v", report.Score)
	}
	if report.TrainRows != train.Len() || report.TestRows != test.Len() {
		t.Fatalf("row counts %d/%d, want %d/%d", report.TrainRows, report.TestRows, train.Len(), test.Len())
	}
	cm := report.Confusion
	if cm.TP+cm.FP+cm.TN+cm.FN != test.Len() {
		t.Fatalf("confusion matrix covers %d rows, want %d", cm.TP+cm.FP+cm.TN+cm.FN, test.Len())
	}
}

func TestFinalizeFitFailureIsFatal(t *testing.T) {
	ds := syntheticPanel(200, 3, 12)
	train, test, _ := HoldoutSplit(ds, 0.25)
	learner := &fakeLearner{failFor: map[int]bool{5: true}}
	if _, _, err := Finalize(context.Background(), learner, models.Candidate{ID: 5}, train, test, MetricAUC); err == nil {
		t.Fatal("final fit failure must be fatal")
	}
}
