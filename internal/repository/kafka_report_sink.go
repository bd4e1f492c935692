package repository

import (
	"context"

	"VolTune/internal/domain/models"
	"VolTune/internal/domain/repository"
	pkgkafka "VolTune/pkg/kafka"
)

// KafkaReportSink publishes selection results and final reports to the
// reports topic. Plotting and report generation live in downstream consumers.
type KafkaReportSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaReportSink creates the Kafka report sink.
func NewKafkaReportSink(producer *pkgkafka.Producer, topic string) repository.ReportSink {
	return &KafkaReportSink{producer: producer, topic: topic}
}

func (s *KafkaReportSink) PublishSelection(ctx context.Context, runID string, sel *models.SelectionResult) error {
	return s.producer.Publish(ctx, s.topic, []byte(runID), map[string]interface{}{
		"type":      "selection",
		"run_id":    runID,
		"selection": sel,
	})
}

func (s *KafkaReportSink) PublishReport(ctx context.Context, report *models.FinalReport) error {
	return s.producer.Publish(ctx, s.topic, []byte(report.RunID), map[string]interface{}{
		"type":   "report",
		"run_id": report.RunID,
		"report": report,
	})
}

func (s *KafkaReportSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
