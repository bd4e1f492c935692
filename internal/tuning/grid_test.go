package tuning

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"VolTune/internal/domain/models"
	drepo "VolTune/internal/domain/repository"
)

// syntheticPanel builds a deterministic sorted firm-month panel where the
// label follows the sign of the feature sum, so any reasonable scorer can
// separate the classes.
func syntheticPanel(n, features int, seed int64) *models.Dataset {
	rng := rand.New(rand.NewSource(seed))
	names := make([]string, features)
	for j := range names {
		names[j] = fmt.Sprintf("f%d", j)
	}
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.Observation, n)
	for i := range rows {
		feats := make([]float64, features)
		sum := 0.0
		for j := range feats {
			feats[j] = rng.NormFloat64()
			sum += feats[j]
		}
		label := 0.0
		if sum > 0 {
			label = 1
		}
		rows[i] = models.Observation{
			Entity:   fmt.Sprintf("firm-%d", i%17),
			Ts:       base.AddDate(0, i, 0),
			Features: feats,
			Label:    label,
		}
	}
	return &models.Dataset{FeatureNames: names, Rows: rows}
}

// fakeLearner scores rows by their feature sum. Candidates listed in failFor
// or panicFor misbehave on every fold.
type fakeLearner struct {
	mu       sync.Mutex
	fits     int
	failFor  map[int]bool
	panicFor map[int]bool
}

type fakeModel struct{ candID int }

func (f *fakeLearner) Fit(_ context.Context, train *models.Dataset, cand models.Candidate) (drepo.FittedModel, error) {
	f.mu.Lock()
	f.fits++
	f.mu.Unlock()
	if f.panicFor != nil && f.panicFor[cand.ID] {
		panic("forced panic")
	}
	if f.failFor != nil && f.failFor[cand.ID] {
		return nil, errors.New("forced fit failure")
	}
	if train.Len() == 0 {
		return nil, errors.New("empty train slice")
	}
	return &fakeModel{candID: cand.ID}, nil
}

func (f *fakeLearner) Predict(_ context.Context, m drepo.FittedModel, data *models.Dataset) ([]float64, error) {
	if _, ok := m.(*fakeModel); !ok {
		return nil, errors.New("foreign model")
	}
	out := make([]float64, data.Len())
	for i, r := range data.Rows {
		sum := 0.0
		for _, v := range r.Features {
			sum += v
		}
		out[i] = sum
	}
	return out, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordEvaluation(string)         {}
func (nopMetrics) RecordEvalDuration(float64)      {}
func (nopMetrics) RecordRun(string)                {}
func (nopMetrics) RecordBestScore(string, float64) {}
func (nopMetrics) RecordDatasetRows(int)           {}
func (nopMetrics) RecordError(string)              {}

func testCandidates(n int) []models.Candidate {
	cands := make([]models.Candidate, n)
	for i := range cands {
		cands[i] = models.Candidate{ID: i, Params: map[string]float64{"depth": float64(i + 1)}}
	}
	return cands
}

func TestGridCompleteness(t *testing.T) {
	ds := syntheticPanel(400, 4, 1)
	folds, err := Split(ds.Len(), Window{Lookback: 120, Assess: 60, Step: 100})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	cands := testCandidates(5)

	g := NewGrid(&fakeLearner{}, nopMetrics{}, 4)
	records, err := g.Evaluate(context.Background(), ds, folds, cands, MetricAUC)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(records) != len(folds)*len(cands) {
		t.Fatalf("got %d records, want %d", len(records), len(folds)*len(cands))
	}

	seen := make(map[[2]int]bool)
	for _, r := range records {
		key := [2]int{r.FoldID, r.CandidateID}
		if seen[key] {
			t.Fatalf("duplicate record for fold=%d candidate=%d", r.FoldID, r.CandidateID)
		}
		seen[key] = true
		if r.Failed {
			t.Fatalf("unexpected failure for fold=%d candidate=%d: %s", r.FoldID, r.CandidateID, r.Error)
		}
		if r.Value <= 0.5 {
			t.Fatalf("separable data scored AUC %v for fold=%d", r.Value, r.FoldID)
		}
	}
	if len(seen) != len(folds)*len(cands) {
		t.Fatalf("got %d unique pairs, want %d", len(seen), len(folds)*len(cands))
	}
}

func TestGridScenarioEndToEnd(t *testing.T) {
	ds := syntheticPanel(19000, 6, 6)
	folds, err := Split(ds.Len(), Window{Lookback: 10000, Assess: 4000, Step: 5000})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(folds) != 2 {
		t.Fatalf("got %d folds, want 2", len(folds))
	}

	s, err := NewSpace(sixRanges())
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	if err := s.Resolve(len(ds.FeatureNames)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cands, err := s.Sample(20, 234)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	g := NewGrid(&fakeLearner{}, nopMetrics{}, 4)
	records, err := g.Evaluate(context.Background(), ds, folds, cands, MetricAUC)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(records) != 40 {
		t.Fatalf("got %d records, want 40", len(records))
	}

	sel, err := Select(records, cands, MetricAUC)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.CandidateID < 0 || sel.CandidateID >= len(cands) {
		t.Fatalf("winner %d outside candidate range", sel.CandidateID)
	}
	if sel.MeanScore <= 0.5 {
		t.Fatalf("separable panel selected mean %v", sel.MeanScore)
	}
}

func TestGridSingleFailureIsolation(t *testing.T) {
	ds := syntheticPanel(300, 3, 2)
	folds, err := Split(ds.Len(), Window{Lookback: 100, Assess: 50, Step: 100})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	cands := testCandidates(4)

	g := NewGrid(&fakeLearner{failFor: map[int]bool{2: true}}, nopMetrics{}, 3)
	records, err := g.Evaluate(context.Background(), ds, folds, cands, MetricAUC)
	if err != nil {
		t.Fatalf("evaluate must not raise on pair failure: %v", err)
	}
	failed, ok := 0, 0
	for _, r := range records {
		if r.Failed {
			failed++
			if r.CandidateID != 2 {
				t.Fatalf("unexpected failed candidate %d", r.CandidateID)
			}
			if r.Error == "" {
				t.Fatal("failure record without reason")
			}
		} else {
			ok++
		}
	}
	if failed != len(folds) {
		t.Fatalf("got %d failures, want %d", failed, len(folds))
	}
	if ok != len(folds)*(len(cands)-1) {
		t.Fatalf("got %d successes, want %d", ok, len(folds)*(len(cands)-1))
	}
}

func TestGridContainsPanic(t *testing.T) {
	ds := syntheticPanel(300, 3, 3)
	folds, _ := Split(ds.Len(), Window{Lookback: 100, Assess: 50, Step: 100})
	cands := testCandidates(3)

	g := NewGrid(&fakeLearner{panicFor: map[int]bool{1: true}}, nopMetrics{}, 2)
	records, err := g.Evaluate(context.Background(), ds, folds, cands, MetricAUC)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for _, r := range records {
		if r.CandidateID == 1 && !r.Failed {
			t.Fatalf("panicking pair fold=%d not failure-marked", r.FoldID)
		}
		if r.CandidateID != 1 && r.Failed {
			t.Fatalf("sibling pair fold=%d candidate=%d failed: %s", r.FoldID, r.CandidateID, r.Error)
		}
	}
}

func TestGridCancellation(t *testing.T) {
	ds := syntheticPanel(300, 3, 4)
	folds, _ := Split(ds.Len(), Window{Lookback: 100, Assess: 50, Step: 50})
	cands := testCandidates(50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGrid(&fakeLearner{}, nopMetrics{}, 2)
	records, err := g.Evaluate(ctx, ds, folds, cands, MetricAUC)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if records != nil {
		t.Fatal("cancelled run must not return partial records")
	}
}

func TestGridDegenerateFoldIsRecoverable(t *testing.T) {
	// all-positive labels make AUC undefined on every validation slice
	ds := syntheticPanel(300, 3, 5)
	for i := range ds.Rows {
		ds.Rows[i].Label = 1
	}
	folds, _ := Split(ds.Len(), Window{Lookback: 100, Assess: 50, Step: 100})
	cands := testCandidates(2)

	g := NewGrid(&fakeLearner{}, nopMetrics{}, 2)
	records, err := g.Evaluate(context.Background(), ds, folds, cands, MetricAUC)
	if err != nil {
		t.Fatalf("degenerate folds must not abort evaluate: %v", err)
	}
	for _, r := range records {
		if !r.Failed {
			t.Fatalf("fold=%d candidate=%d should be failure-marked", r.FoldID, r.CandidateID)
		}
	}
}
