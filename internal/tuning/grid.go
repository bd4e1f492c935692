package tuning

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"VolTune/internal/domain/models"
	drepo "VolTune/internal/domain/repository"
)

// Grid evaluates every (fold, candidate) pair over a fixed worker pool. Pairs
// are independent: each worker fits a model on the fold's train slice via the
// learner boundary and scores it on the validation slice. A failing pair
// produces a failure-marked record and never aborts its siblings.
type Grid struct {
	learner  drepo.Learner
	metrics  drepo.Metrics
	workers  int
	progress func(done, total int)
}

// NewGrid creates a grid evaluator. workers <= 0 selects NumCPU-1 (min 1),
// established once per Evaluate call and torn down before it returns.
func NewGrid(learner drepo.Learner, metrics drepo.Metrics, workers int) *Grid {
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
		if workers < 1 {
			workers = 1
		}
	}
	return &Grid{learner: learner, metrics: metrics, workers: workers}
}

// OnProgress installs a callback invoked after each completed pair.
func (g *Grid) OnProgress(fn func(done, total int)) { g.progress = fn }

// Workers returns the pool size.
func (g *Grid) Workers() int { return g.workers }

// Evaluate scores every (fold, candidate) pair and returns exactly
// len(folds)*len(cands) records, one slot per pair, each written exactly once.
// Record order is fold-major regardless of completion order. If ctx is
// cancelled the pool is drained and released before the cancellation is
// propagated; no partial records are returned.
func (g *Grid) Evaluate(ctx context.Context, ds *models.Dataset, folds []models.Fold, cands []models.Candidate, kind MetricKind) ([]models.MetricRecord, error) {
	if len(folds) == 0 {
		return nil, ErrNoFolds
	}
	if len(cands) == 0 {
		return nil, ErrEmptySpace
	}

	total := len(folds) * len(cands)
	records := make([]models.MetricRecord, total)
	jobs := make(chan int)

	var done int64
	var wg sync.WaitGroup
	for w := 0; w < g.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fold := folds[idx/len(cands)]
				cand := cands[idx%len(cands)]
				records[idx] = g.evalPair(ctx, ds, fold, cand, kind)
				if g.progress != nil {
					g.progress(int(atomic.AddInt64(&done, 1)), total)
				}
			}
		}()
	}

dispatch:
	for idx := 0; idx < total; idx++ {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// evalPair runs one blocking fit-then-score unit of work. Panics from the
// learner boundary are contained to the pair.
func (g *Grid) evalPair(ctx context.Context, ds *models.Dataset, fold models.Fold, cand models.Candidate, kind MetricKind) (rec models.MetricRecord) {
	rec = models.MetricRecord{FoldID: fold.ID, CandidateID: cand.ID, Metric: string(kind)}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			rec.Failed = true
			rec.Error = fmt.Sprintf("panic: %v", r)
			g.metrics.RecordEvaluation("failed")
		}
		g.metrics.RecordEvalDuration(time.Since(start).Seconds())
	}()

	train := ds.Slice(fold.TrainStart, fold.TrainEnd)
	val := ds.Slice(fold.ValStart, fold.ValEnd)

	model, err := g.learner.Fit(ctx, train, cand)
	if err != nil {
		return g.fail(rec, fmt.Errorf("fit: %w", err))
	}
	scores, err := g.learner.Predict(ctx, model, val)
	if err != nil {
		return g.fail(rec, fmt.Errorf("predict: %w", err))
	}
	value, err := Score(kind, val.Labels(), scores)
	if err != nil {
		return g.fail(rec, fmt.Errorf("score: %w", err))
	}

	rec.Value = value
	g.metrics.RecordEvaluation("ok")
	return rec
}

func (g *Grid) fail(rec models.MetricRecord, err error) models.MetricRecord {
	rec.Failed = true
	rec.Error = err.Error()
	g.metrics.RecordEvaluation("failed")
	return rec
}
