package tuning

import (
	"errors"
	"testing"

	"VolTune/internal/domain/models"
)

func rec(fold, cand int, v float64) models.MetricRecord {
	return models.MetricRecord{FoldID: fold, CandidateID: cand, Metric: "auc", Value: v}
}

func failRec(fold, cand int) models.MetricRecord {
	return models.MetricRecord{FoldID: fold, CandidateID: cand, Metric: "auc", Failed: true, Error: "boom"}
}

func TestSelectDominantCandidate(t *testing.T) {
	records := []models.MetricRecord{
		rec(0, 0, 0.60), rec(1, 0, 0.62),
		rec(0, 1, 0.80), rec(1, 1, 0.82),
		rec(0, 2, 0.70), rec(1, 2, 0.71),
	}
	sel, err := Select(records, testCandidates(3), MetricAUC)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.CandidateID != 1 {
		t.Fatalf("got candidate %d, want 1", sel.CandidateID)
	}
	if sel.MeanScore != 0.81 {
		t.Fatalf("got mean %v, want 0.81", sel.MeanScore)
	}
	if len(sel.Records) != len(records) {
		t.Fatal("selection must retain the full metric table for audit")
	}
}

func TestSelectTieBreaksLowestID(t *testing.T) {
	records := []models.MetricRecord{
		rec(0, 2, 0.75), rec(0, 0, 0.75), rec(0, 1, 0.75),
	}
	sel, err := Select(records, testCandidates(3), MetricAUC)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.CandidateID != 0 {
		t.Fatalf("full tie must pick lowest ID, got %d", sel.CandidateID)
	}
}

func TestSelectExcludesFailures(t *testing.T) {
	// candidate 0 dominates on its one surviving fold, candidate 1 is steady
	records := []models.MetricRecord{
		rec(0, 0, 0.95), failRec(1, 0),
		rec(0, 1, 0.70), rec(1, 1, 0.72),
	}
	sel, err := Select(records, testCandidates(2), MetricAUC)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// mean over non-failed records only: 0.95 vs 0.71
	if sel.CandidateID != 0 {
		t.Fatalf("got candidate %d, want 0", sel.CandidateID)
	}
}

func TestSelectSkipsFullyFailedCandidate(t *testing.T) {
	records := []models.MetricRecord{
		failRec(0, 0), failRec(1, 0),
		rec(0, 1, 0.55), rec(1, 1, 0.56),
	}
	sel, err := Select(records, testCandidates(2), MetricAUC)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.CandidateID != 1 {
		t.Fatalf("got candidate %d, want 1", sel.CandidateID)
	}
}

func TestSelectExhaustion(t *testing.T) {
	records := []models.MetricRecord{failRec(0, 0), failRec(0, 1)}
	if _, err := Select(records, testCandidates(2), MetricAUC); !errors.Is(err, ErrSelectionExhausted) {
		t.Fatalf("got %v, want ErrSelectionExhausted", err)
	}
}

func TestSelectCarriesParams(t *testing.T) {
	cands := testCandidates(2)
	records := []models.MetricRecord{rec(0, 1, 0.9), rec(0, 0, 0.1)}
	sel, err := Select(records, cands, MetricAUC)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Params["depth"] != cands[1].Params["depth"] {
		t.Fatalf("winner params %v, want %v", sel.Params, cands[1].Params)
	}
}
