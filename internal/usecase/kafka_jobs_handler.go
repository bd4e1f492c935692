package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"VolTune/internal/domain/models"
	domrepo "VolTune/internal/domain/repository"
	pkgkafka "VolTune/pkg/kafka"
)

// KafkaJobsHandler consumes tuning job messages and submits them to the
// runner. Malformed payloads are rejected permanently (they go to the DLQ
// after retries); a duplicate run ID is treated as already-handled so
// redelivery stays idempotent.
type KafkaJobsHandler struct {
	topic   string
	runner  *TuneRunner
	metrics domrepo.Metrics
}

func NewKafkaJobsHandler(topic string, runner *TuneRunner, metrics domrepo.Metrics) *KafkaJobsHandler {
	return &KafkaJobsHandler{topic: topic, runner: runner, metrics: metrics}
}

func (h *KafkaJobsHandler) Topic() string { return h.topic }

// incoming message schema mirrors TuneRequest; run_id is required.
func (h *KafkaJobsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.TuneRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("jobs_unmarshal")
		return fmt.Errorf("decode tune request: %w", err)
	}
	if req.RunID == "" {
		h.metrics.RecordError("jobs_missing_run_id")
		return fmt.Errorf("tune request without run_id")
	}
	if req.To.IsZero() {
		req.To = time.Now().UTC()
	}

	if err := h.runner.Submit(ctx, req); err != nil {
		// duplicate run IDs show up on redelivery; already handled
		if h.runner.registry.Get(req.RunID) != nil {
			return nil
		}
		h.metrics.RecordError("jobs_submit")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaJobsHandler)(nil)
