package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VolTune/internal/domain/models"
	domrepo "VolTune/internal/domain/repository"
)

// ProgressPipeline sits between the tuning runner and the WebSocket layer.
// It validates and throttles progress events, buffers them through a bounded
// channel, and fans them out to per-run subscribers. A slow or absent
// subscriber never blocks the runner: events are dropped, not queued forever.
type ProgressPipeline struct {
	metrics domrepo.Metrics
	maxEPS  int // max progress events per second per run
	bufSize int
	evCh    chan *models.RunEvent
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	subMu sync.RWMutex
	subs  map[string]map[chan models.RunEvent]struct{}

	lastSeen map[string]time.Time // per-run last accepted progress event
}

type PipelineOption func(*ProgressPipeline)

// WithMaxEPS sets the max progress events per second per run. Stage-transition
// events are never throttled.
func WithMaxEPS(n int) PipelineOption {
	return func(p *ProgressPipeline) {
		if n > 0 {
			p.maxEPS = n
		}
	}
}

// WithBufferSize sets the internal event buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *ProgressPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewProgressPipeline creates a new pipeline.
func NewProgressPipeline(metrics domrepo.Metrics, opts ...PipelineOption) *ProgressPipeline {
	p := &ProgressPipeline{
		metrics:  metrics,
		maxEPS:   20,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		subs:     make(map[string]map[chan models.RunEvent]struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.evCh = make(chan *models.RunEvent, p.bufSize)
	return p
}

// Start launches background fan-out of buffered events.
func (p *ProgressPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case ev := <-p.evCh:
				if ev == nil {
					continue
				}
				p.fanOut(ev)
			}
		}
	}()
}

// Stop stops the background fan-out.
func (p *ProgressPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Publish validates, throttles, and enqueues one event. Non-blocking: a full
// buffer drops the event and records the drop.
func (p *ProgressPipeline) Publish(ev models.RunEvent) error {
	if err := validateEvent(&ev); err != nil {
		p.metrics.RecordError("progress_validate")
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	// only repeated evaluation ticks are throttled; stage transitions always pass
	if ev.Stage == models.StageEvaluate && ev.Done < ev.Total && !p.allow(ev.RunID, ev.Timestamp) {
		return nil
	}

	select {
	case p.evCh <- &ev:
	default:
		p.metrics.RecordError("progress_buffer_full")
	}
	return nil
}

// Subscribe returns a channel of events for one run plus a cancel function.
// The channel is buffered; events overflowing it are dropped for that
// subscriber only.
func (p *ProgressPipeline) Subscribe(runID string) (<-chan models.RunEvent, func()) {
	ch := make(chan models.RunEvent, 64)

	p.subMu.Lock()
	if _, ok := p.subs[runID]; !ok {
		p.subs[runID] = make(map[chan models.RunEvent]struct{})
	}
	p.subs[runID][ch] = struct{}{}
	p.subMu.Unlock()

	cancel := func() {
		p.subMu.Lock()
		if m, ok := p.subs[runID]; ok {
			delete(m, ch)
			if len(m) == 0 {
				delete(p.subs, runID)
			}
		}
		p.subMu.Unlock()
	}
	return ch, cancel
}

func (p *ProgressPipeline) fanOut(ev *models.RunEvent) {
	p.subMu.RLock()
	defer p.subMu.RUnlock()
	for ch := range p.subs[ev.RunID] {
		select {
		case ch <- *ev:
		default:
			p.metrics.RecordError("progress_subscriber_slow")
		}
	}
}

func validateEvent(ev *models.RunEvent) error {
	if ev == nil {
		return fmt.Errorf("event nil")
	}
	if ev.RunID == "" {
		return fmt.Errorf("run id empty")
	}
	if ev.Stage == "" {
		return fmt.Errorf("stage empty")
	}
	return nil
}

func (p *ProgressPipeline) allow(runID string, now time.Time) bool {
	if p.maxEPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[runID]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxEPS) {
		return false
	}
	p.lastSeen[runID] = now
	return true
}
