package usecase

import (
	"sync"
	"time"

	"VolTune/internal/domain/models"
)

// RunRegistry tracks the lifecycle of tuning runs in memory. Finished runs are
// additionally persisted through the report cache so API reads survive a
// restart; the registry itself is the authoritative view while the process
// lives.
type RunRegistry struct {
	mu   sync.RWMutex
	runs map[string]*models.RunState
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: make(map[string]*models.RunState)}
}

// Create registers a queued run. Returns false if the run ID is taken.
func (r *RunRegistry) Create(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[runID]; ok {
		return false
	}
	r.runs[runID] = &models.RunState{
		RunID:     runID,
		Status:    models.RunQueued,
		StartedAt: time.Now().UTC(),
	}
	return true
}

func (r *RunRegistry) SetRunning(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.runs[runID]; ok {
		s.Status = models.RunRunning
	}
}

// Finish records a successful run with its selection and final report.
func (r *RunRegistry) Finish(runID string, sel *models.SelectionResult, report *models.FinalReport, records []models.MetricRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.runs[runID]; ok {
		s.Status = models.RunFinished
		s.Selection = sel
		s.Report = report
		s.Records = records
		s.FinishedAt = time.Now().UTC()
	}
}

// Fail records a fatal run error.
func (r *RunRegistry) Fail(runID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.runs[runID]; ok {
		s.Status = models.RunFailed
		s.Error = err.Error()
		s.FinishedAt = time.Now().UTC()
	}
}

// Get returns a copy of the run state, or nil if unknown.
func (r *RunRegistry) Get(runID string) *models.RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.runs[runID]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// Records returns the full metric table of a run, nil if unknown or pending.
func (r *RunRegistry) Records(runID string) []models.MetricRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.runs[runID]
	if !ok {
		return nil
	}
	return s.Records
}
