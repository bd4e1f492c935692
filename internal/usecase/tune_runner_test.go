package usecase

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"VolTune/internal/domain/models"
	drepo "VolTune/internal/domain/repository"
	"VolTune/internal/middleware"
	"VolTune/pkg/config"
	"VolTune/pkg/logger"
)

// --- fakes ---

type fakeStore struct {
	ds      *models.Dataset
	loadErr error
}

func (s *fakeStore) LoadPanel(context.Context, time.Time, time.Time) (*models.Dataset, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.ds, nil
}
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakeModel struct{ offset float64 }

type fakeLearner struct {
	mu   sync.Mutex
	fits int
}

func (l *fakeLearner) Fit(_ context.Context, _ *models.Dataset, cand models.Candidate) (drepo.FittedModel, error) {
	l.mu.Lock()
	l.fits++
	l.mu.Unlock()
	return fakeModel{offset: cand.Params["shift"] / 100}, nil
}

func (l *fakeLearner) Predict(_ context.Context, m drepo.FittedModel, data *models.Dataset) ([]float64, error) {
	fm := m.(fakeModel)
	out := make([]float64, data.Len())
	for i, r := range data.Rows {
		var sum float64
		for _, v := range r.Features {
			sum += v
		}
		out[i] = 1/(1+math.Exp(-sum)) + fm.offset
		if out[i] > 1 {
			out[i] = 1
		}
	}
	return out, nil
}

type fakeSink struct {
	mu         sync.Mutex
	selections int
	reports    int
	failWith   error
}

func (s *fakeSink) PublishSelection(context.Context, string, *models.SelectionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.selections++
	return nil
}

func (s *fakeSink) PublishReport(context.Context, *models.FinalReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.reports++
	return nil
}
func (s *fakeSink) Close() error { return nil }

type memCache struct {
	mu   sync.Mutex
	runs map[string]*models.RunState
}

func newMemCache() *memCache { return &memCache{runs: make(map[string]*models.RunState)} }

func (c *memCache) SaveRun(_ context.Context, state *models.RunState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[state.RunID] = state
	return nil
}

func (c *memCache) GetRun(_ context.Context, runID string) (*models.RunState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.runs[runID]; ok {
		return s, nil
	}
	return nil, errors.New("not found")
}
func (c *memCache) Health(context.Context) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordEvaluation(string)         {}
func (nopMetrics) RecordEvalDuration(float64)      {}
func (nopMetrics) RecordRun(string)                {}
func (nopMetrics) RecordBestScore(string, float64) {}
func (nopMetrics) RecordDatasetRows(int)           {}
func (nopMetrics) RecordError(string)              {}

// --- helpers ---

func testPanel(n int, seed int64) *models.Dataset {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := &models.Dataset{FeatureNames: []string{"f0", "f1", "f2"}}
	for i := 0; i < n; i++ {
		feats := []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		var sum float64
		for _, v := range feats {
			sum += v
		}
		label := 0.0
		if sum > 0 {
			label = 1.0
		}
		ds.Rows = append(ds.Rows, models.Observation{
			Entity:   "firm-1",
			Ts:       base.AddDate(0, i, 0),
			Features: feats,
			Label:    label,
		})
	}
	return ds
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Tuning.Lookback = 100
	cfg.Tuning.Assess = 40
	cfg.Tuning.Step = 80
	cfg.Tuning.SampleSize = 4
	cfg.Tuning.Seed = 7
	cfg.Tuning.Metric = "auc"
	cfg.Tuning.TestFraction = 0.2
	cfg.Tuning.Workers = 2
	cfg.Tuning.Space = []config.ParamSpec{
		{Name: "shift", Kind: "continuous", Min: 0, Max: 1},
		{Name: "depth", Kind: "integer", Min: 2, Max: 8},
		{Name: "feature_count", Kind: "integer", Min: 1, DataDriven: true},
	}
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newRunner(t *testing.T, store *fakeStore, sink *fakeSink, cache *memCache) (*TuneRunner, *RunRegistry) {
	t.Helper()
	registry := NewRunRegistry()
	progress := middleware.NewProgressPipeline(nopMetrics{})
	return NewTuneRunner(store, &fakeLearner{}, sink, cache, nopMetrics{}, testLogger(t), registry, progress, testConfig()), registry
}

// --- tests ---

func TestRunFinishesAndRecordsEverything(t *testing.T) {
	store := &fakeStore{ds: testPanel(500, 1)}
	sink := &fakeSink{}
	cache := newMemCache()
	runner, registry := newRunner(t, store, sink, cache)

	registry.Create("run-1")
	if err := runner.Run(context.Background(), models.TuneRequest{RunID: "run-1"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	state := registry.Get("run-1")
	if state.Status != models.RunFinished {
		t.Fatalf("status %s, want finished (error: %s)", state.Status, state.Error)
	}
	if state.Selection == nil || state.Report == nil {
		t.Fatal("finished run must carry selection and report")
	}
	// training portion is 400 rows: folds at 0 and 80 and 160 and 240 fit
	wantFolds := 4
	if state.Report.Folds != wantFolds {
		t.Fatalf("got %d folds, want %d", state.Report.Folds, wantFolds)
	}
	if state.Report.Candidates != 4 {
		t.Fatalf("got %d candidates, want 4", state.Report.Candidates)
	}
	if got := len(state.Records); got != wantFolds*4 {
		t.Fatalf("got %d records, want %d", got, wantFolds*4)
	}
	if sink.selections != 1 || sink.reports != 1 {
		t.Fatalf("published %d selections / %d reports, want 1/1", sink.selections, sink.reports)
	}
	if _, err := cache.GetRun(context.Background(), "run-1"); err != nil {
		t.Fatal("finished run must be persisted to the cache")
	}
}

func TestRunLoadFailureIsStageTagged(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("connection refused")}
	runner, registry := newRunner(t, store, &fakeSink{}, newMemCache())

	registry.Create("run-2")
	err := runner.Run(context.Background(), models.TuneRequest{RunID: "run-2"})
	if err == nil {
		t.Fatal("expected load failure")
	}
	if !strings.HasPrefix(err.Error(), models.StageLoad) {
		t.Fatalf("error %q not tagged with load stage", err)
	}
	if state := registry.Get("run-2"); state.Status != models.RunFailed {
		t.Fatalf("status %s, want failed", state.Status)
	}
}

func TestRunTooShortPanelFailsInSplit(t *testing.T) {
	store := &fakeStore{ds: testPanel(50, 2)} // training portion cannot fill one fold
	runner, registry := newRunner(t, store, &fakeSink{}, newMemCache())

	registry.Create("run-3")
	err := runner.Run(context.Background(), models.TuneRequest{RunID: "run-3"})
	if err == nil {
		t.Fatal("expected split failure")
	}
	if !strings.HasPrefix(err.Error(), models.StageSplit) {
		t.Fatalf("error %q not tagged with split stage", err)
	}
}

func TestRunPublishFailureFailsRun(t *testing.T) {
	store := &fakeStore{ds: testPanel(500, 3)}
	sink := &fakeSink{failWith: errors.New("broker down")}
	runner, registry := newRunner(t, store, sink, newMemCache())

	registry.Create("run-4")
	err := runner.Run(context.Background(), models.TuneRequest{RunID: "run-4"})
	if err == nil {
		t.Fatal("expected publish failure")
	}
	if !strings.HasPrefix(err.Error(), models.StagePublish) {
		t.Fatalf("error %q not tagged with publish stage", err)
	}
}

func TestSubmitRejectsDuplicateRunID(t *testing.T) {
	store := &fakeStore{ds: testPanel(500, 4)}
	runner, registry := newRunner(t, store, &fakeSink{}, newMemCache())

	registry.Create("run-5")
	if err := runner.Submit(context.Background(), models.TuneRequest{RunID: "run-5"}); err == nil {
		t.Fatal("duplicate run id must be rejected")
	}
}

func TestRequestOverridesBeatConfigDefaults(t *testing.T) {
	store := &fakeStore{ds: testPanel(500, 5)}
	runner, registry := newRunner(t, store, &fakeSink{}, newMemCache())

	registry.Create("run-6")
	err := runner.Run(context.Background(), models.TuneRequest{
		RunID:    "run-6",
		Lookback: 200,
		Assess:   100,
		Step:     100,
		Size:     3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	state := registry.Get("run-6")
	// 400 training rows with 200+100 window and step 100: folds at 0 and 100
	if state.Report.Folds != 2 {
		t.Fatalf("got %d folds, want 2", state.Report.Folds)
	}
	if state.Report.Candidates != 3 {
		t.Fatalf("got %d candidates, want 3", state.Report.Candidates)
	}
}
