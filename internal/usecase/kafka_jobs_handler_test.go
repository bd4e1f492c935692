package usecase

import (
	"context"
	"testing"
	"time"

	"VolTune/internal/domain/models"
)

func TestJobsHandlerRejectsMalformedPayload(t *testing.T) {
	store := &fakeStore{ds: testPanel(500, 8)}
	runner, _ := newRunner(t, store, &fakeSink{}, newMemCache())
	h := NewKafkaJobsHandler("tune.jobs", runner, nopMetrics{})

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("malformed payload must be rejected")
	}
	if err := h.Handle(context.Background(), []byte(`{"seed": 3}`)); err == nil {
		t.Fatal("missing run_id must be rejected")
	}
}

func TestJobsHandlerSubmitsRun(t *testing.T) {
	store := &fakeStore{ds: testPanel(500, 9)}
	runner, registry := newRunner(t, store, &fakeSink{}, newMemCache())
	h := NewKafkaJobsHandler("tune.jobs", runner, nopMetrics{})

	if err := h.Handle(context.Background(), []byte(`{"run_id": "job-1", "size": 2}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if registry.Get("job-1") == nil {
		t.Fatal("run must be registered")
	}

	// redelivery of the same job is idempotent
	if err := h.Handle(context.Background(), []byte(`{"run_id": "job-1", "size": 2}`)); err != nil {
		t.Fatalf("redelivery must be acked, got %v", err)
	}

	// wait for the async run to settle before the test tears down
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		s := registry.Get("job-1")
		if s.Status == models.RunFinished || s.Status == models.RunFailed {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("run never settled")
}
