package middleware

import (
	"context"
	"testing"
	"time"

	"VolTune/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordEvaluation(string)         {}
func (nopMetrics) RecordEvalDuration(float64)      {}
func (nopMetrics) RecordRun(string)                {}
func (nopMetrics) RecordBestScore(string, float64) {}
func (nopMetrics) RecordDatasetRows(int)           {}
func (nopMetrics) RecordError(string)              {}

func TestPipelineDeliversToSubscriber(t *testing.T) {
	p := NewProgressPipeline(nopMetrics{}, WithMaxEPS(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	events, unsub := p.Subscribe("run-1")
	defer unsub()

	if err := p.Publish(models.RunEvent{RunID: "run-1", Stage: models.StageLoad}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Stage != models.StageLoad {
			t.Fatalf("got stage %s, want load", ev.Stage)
		}
		if ev.Timestamp.IsZero() {
			t.Fatal("pipeline must stamp events")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestPipelineIsolatesRuns(t *testing.T) {
	p := NewProgressPipeline(nopMetrics{}, WithMaxEPS(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	other, unsub := p.Subscribe("run-b")
	defer unsub()

	_ = p.Publish(models.RunEvent{RunID: "run-a", Stage: models.StageSelect})

	select {
	case ev := <-other:
		t.Fatalf("run-b subscriber received foreign event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPipelineRejectsInvalidEvents(t *testing.T) {
	p := NewProgressPipeline(nopMetrics{})
	if err := p.Publish(models.RunEvent{Stage: models.StageLoad}); err == nil {
		t.Fatal("missing run id must be rejected")
	}
	if err := p.Publish(models.RunEvent{RunID: "r"}); err == nil {
		t.Fatal("missing stage must be rejected")
	}
}

func TestPipelineThrottlesRepeatedTicks(t *testing.T) {
	p := NewProgressPipeline(nopMetrics{}, WithMaxEPS(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	events, unsub := p.Subscribe("run-t")
	defer unsub()

	// burst of mid-run ticks; only the first fits the rate window
	for i := 1; i <= 50; i++ {
		_ = p.Publish(models.RunEvent{RunID: "run-t", Stage: models.StageEvaluate, Done: i, Total: 100})
	}
	// terminal tick always passes
	_ = p.Publish(models.RunEvent{RunID: "run-t", Stage: models.StageEvaluate, Done: 100, Total: 100})

	deadline := time.After(2 * time.Second)
	var got []models.RunEvent
	for {
		select {
		case ev := <-events:
			got = append(got, ev)
			if ev.Done == 100 {
				if len(got) > 3 {
					t.Fatalf("throttle passed %d events", len(got))
				}
				return
			}
		case <-deadline:
			t.Fatal("terminal event never delivered")
		}
	}
}

func TestPipelineSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	p := NewProgressPipeline(nopMetrics{}, WithMaxEPS(0), WithBufferSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	// subscriber that never reads
	_, unsub := p.Subscribe("run-s")
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			_ = p.Publish(models.RunEvent{RunID: "run-s", Stage: models.StageSelect})
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}
