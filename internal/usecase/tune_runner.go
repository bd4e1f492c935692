package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VolTune/internal/domain/models"
	domrepo "VolTune/internal/domain/repository"
	"VolTune/internal/middleware"
	"VolTune/internal/tuning"
	"VolTune/pkg/config"
	"VolTune/pkg/logger"
)

// TuneRunner orchestrates one tuning run end to end: load the panel, cut the
// holdout, build and sample the hyperparameter space, evaluate the grid over
// rolling folds, select the winner, refit once on the full training portion and
// score the holdout. Runs are serialized; a run is either fully recorded or
// failed with a stage-tagged error, never half-finished.
type TuneRunner struct {
	store    domrepo.DatasetStore
	learner  domrepo.Learner
	sink     domrepo.ReportSink
	cache    domrepo.ReportCache
	metrics  domrepo.Metrics
	log      *logger.Logger
	registry *RunRegistry
	progress *middleware.ProgressPipeline
	cfg      *config.Config

	runMu sync.Mutex // one run at a time; evaluations saturate the CPU already
}

func NewTuneRunner(
	store domrepo.DatasetStore,
	learner domrepo.Learner,
	sink domrepo.ReportSink,
	cache domrepo.ReportCache,
	metrics domrepo.Metrics,
	log *logger.Logger,
	registry *RunRegistry,
	progress *middleware.ProgressPipeline,
	cfg *config.Config,
) *TuneRunner {
	return &TuneRunner{
		store:    store,
		learner:  learner,
		sink:     sink,
		cache:    cache,
		metrics:  metrics,
		log:      log,
		registry: registry,
		progress: progress,
		cfg:      cfg,
	}
}

// Submit queues a run and executes it on a background goroutine. The returned
// error covers registration only; execution errors land in the registry.
func (r *TuneRunner) Submit(ctx context.Context, req models.TuneRequest) error {
	if req.RunID == "" {
		return fmt.Errorf("runner: empty run id")
	}
	if !r.registry.Create(req.RunID) {
		return fmt.Errorf("runner: run %s already exists", req.RunID)
	}
	go func() {
		if err := r.Run(ctx, req); err != nil {
			r.log.Error("tuning run failed",
				logger.String("run_id", req.RunID),
				logger.Error(err))
		}
	}()
	return nil
}

// Run executes one tuning run synchronously.
func (r *TuneRunner) Run(ctx context.Context, req models.TuneRequest) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.registry.SetRunning(req.RunID)
	start := time.Now()

	sel, report, records, err := r.execute(ctx, req)
	if err != nil {
		r.registry.Fail(req.RunID, err)
		r.metrics.RecordRun(models.RunFailed)
		r.persist(req.RunID)
		return err
	}

	r.registry.Finish(req.RunID, sel, report, records)
	r.metrics.RecordRun(models.RunFinished)
	r.metrics.RecordBestScore(sel.Metric, sel.MeanScore)
	r.persist(req.RunID)

	r.log.Info("tuning run finished",
		logger.String("run_id", req.RunID),
		logger.Int("candidate", sel.CandidateID),
		logger.Any("mean_score", sel.MeanScore),
		logger.Any("holdout_score", report.Score),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *TuneRunner) execute(ctx context.Context, req models.TuneRequest) (*models.SelectionResult, *models.FinalReport, []models.MetricRecord, error) {
	req = r.withDefaults(req)

	metric, err := tuning.ParseMetric(req.Metric)
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageLoad, err)
	}

	// load
	r.emit(req.RunID, models.StageLoad, "loading panel", 0, 0)
	ds, err := r.store.LoadPanel(ctx, req.From, req.To)
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageLoad, err)
	}
	if !ds.Sorted() {
		return nil, nil, nil, r.fatal(models.StageLoad, tuning.ErrUnsorted)
	}
	r.metrics.RecordDatasetRows(ds.Len())
	r.log.Info("panel loaded",
		logger.String("run_id", req.RunID),
		logger.Int("rows", ds.Len()),
		logger.Int("features", len(ds.FeatureNames)))

	// holdout cut, then rolling folds over the training portion only
	train, test, err := tuning.HoldoutSplit(ds, r.cfg.Tuning.TestFraction)
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageSplit, err)
	}
	folds, err := tuning.SplitDataset(train, tuning.Window{
		Lookback: req.Lookback,
		Assess:   req.Assess,
		Step:     req.Step,
	})
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageSplit, err)
	}
	if len(folds) == 0 {
		return nil, nil, nil, r.fatal(models.StageSplit,
			fmt.Errorf("%w: %d training rows cannot fill lookback %d + assess %d",
				tuning.ErrNoFolds, train.Len(), req.Lookback, req.Assess))
	}
	r.emit(req.RunID, models.StageSplit, fmt.Sprintf("%d folds", len(folds)), 0, 0)

	// sample candidates
	space, err := tuning.NewSpace(spaceFromConfig(r.cfg.Tuning.Space))
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageSample, err)
	}
	if err := space.Resolve(len(train.FeatureNames)); err != nil {
		return nil, nil, nil, r.fatal(models.StageSample, err)
	}
	cands, err := space.Sample(req.Size, req.Seed)
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageSample, err)
	}
	r.emit(req.RunID, models.StageSample, fmt.Sprintf("%d candidates", len(cands)), 0, 0)

	// evaluate the grid
	grid := tuning.NewGrid(r.learner, r.metrics, r.cfg.Tuning.Workers)
	total := len(folds) * len(cands)
	grid.OnProgress(func(done, _ int) {
		r.emit(req.RunID, models.StageEvaluate, "", done, total)
	})
	records, err := grid.Evaluate(ctx, train, folds, cands, metric)
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageEvaluate, err)
	}

	// select
	sel, err := tuning.Select(records, cands, metric)
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageSelect, err)
	}
	r.emit(req.RunID, models.StageSelect, fmt.Sprintf("candidate %d", sel.CandidateID), 0, 0)
	r.log.Info("candidate selected",
		logger.String("run_id", req.RunID),
		logger.Int("candidate", sel.CandidateID),
		logger.Any("mean_score", sel.MeanScore),
		logger.Any("params", sel.Params))

	// final refit and one-shot holdout scoring
	r.emit(req.RunID, models.StageFinalize, "refitting on full training portion", 0, 0)
	_, report, err := tuning.Finalize(ctx, r.learner, models.Candidate{ID: sel.CandidateID, Params: sel.Params}, train, test, metric)
	if err != nil {
		return nil, nil, nil, r.fatal(models.StageFinalize, err)
	}
	report.RunID = req.RunID
	report.Folds = len(folds)
	report.Candidates = len(cands)

	// publish downstream; reporting failures fail the run, silence would hide
	// a half-delivered result
	r.emit(req.RunID, models.StagePublish, "publishing report", 0, 0)
	if err := r.sink.PublishSelection(ctx, req.RunID, sel); err != nil {
		return nil, nil, nil, r.fatal(models.StagePublish, err)
	}
	if err := r.sink.PublishReport(ctx, report); err != nil {
		return nil, nil, nil, r.fatal(models.StagePublish, err)
	}

	return sel, report, records, nil
}

// withDefaults fills zero-valued request fields from configuration.
func (r *TuneRunner) withDefaults(req models.TuneRequest) models.TuneRequest {
	t := r.cfg.Tuning
	if req.Lookback == 0 {
		req.Lookback = t.Lookback
	}
	if req.Assess == 0 {
		req.Assess = t.Assess
	}
	if req.Step == 0 {
		req.Step = t.Step
	}
	if req.Size == 0 {
		req.Size = t.SampleSize
	}
	if req.Seed == 0 {
		req.Seed = t.Seed
	}
	if req.Metric == "" {
		req.Metric = t.Metric
	}
	return req
}

func (r *TuneRunner) fatal(stage string, err error) error {
	r.metrics.RecordError(stage)
	return fmt.Errorf("%s: %w", stage, err)
}

func (r *TuneRunner) emit(runID, stage, msg string, done, total int) {
	if r.progress == nil {
		return
	}
	_ = r.progress.Publish(models.RunEvent{
		RunID:   runID,
		Stage:   stage,
		Message: msg,
		Done:    done,
		Total:   total,
	})
}

// persist mirrors the registry state into the report cache, best effort.
func (r *TuneRunner) persist(runID string) {
	if r.cache == nil {
		return
	}
	state := r.registry.Get(runID)
	if state == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.cache.SaveRun(ctx, state); err != nil {
		r.log.Warn("failed to cache run state",
			logger.String("run_id", runID),
			logger.Error(err))
	}
}

// spaceFromConfig maps YAML parameter specs onto tuning ranges.
func spaceFromConfig(specs []config.ParamSpec) []tuning.ParamRange {
	out := make([]tuning.ParamRange, len(specs))
	for i, s := range specs {
		kind := tuning.Continuous
		switch s.Kind {
		case "integer":
			kind = tuning.Integer
		case "choice":
			kind = tuning.Choice
		}
		out[i] = tuning.ParamRange{
			Name:       s.Name,
			Kind:       kind,
			Min:        s.Min,
			Max:        s.Max,
			Choices:    s.Choices,
			DataDriven: s.DataDriven,
		}
	}
	return out
}
