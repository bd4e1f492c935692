package di

import (
	"context"
	"fmt"
	"time"

	"VolTune/internal/domain/repository"
	"VolTune/internal/handler/api"
	mid "VolTune/internal/middleware"
	internalrepo "VolTune/internal/repository"
	"VolTune/internal/service/learner"
	"VolTune/internal/usecase"
	pkgcache "VolTune/pkg/cache"
	pkgch "VolTune/pkg/clickhouse"
	"VolTune/pkg/config"
	xhttp "VolTune/pkg/http"
	pkgkafka "VolTune/pkg/kafka"
	applogger "VolTune/pkg/logger"
	"VolTune/pkg/metrics"
	"VolTune/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer for the reports topic.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer for the jobs topic.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePanelStore creates the ClickHouse panel store.
func ProvidePanelStore(chClient *pkgch.Client, cfg *config.Config) repository.DatasetStore {
	return internalrepo.NewClickHousePanelStore(chClient.DB(), cfg.ClickHouse.Database, cfg.ClickHouse.Table)
}

// ProvideLearner creates the gradient-boosted-tree learner with train-only
// feature standardization in front of it.
func ProvideLearner(cfg *config.Config) repository.Learner {
	return learner.WithScaling(learner.NewLightGBM(cfg.Tuning.Iterations))
}

// ProvideReportSink creates the Kafka report sink.
func ProvideReportSink(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportSink {
	return internalrepo.NewKafkaReportSink(producer, cfg.Kafka.ReportsTopic)
}

// ProvideReportCache creates the run state cache: layered memory+Redis when
// Redis is enabled, in-process memory otherwise.
func ProvideReportCache(cfg *config.Config) (repository.ReportCache, error) {
	var svc pkgcache.Service
	if cfg.Redis.Enabled {
		redisCache, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Redis.Host),
			pkgcache.WithRedisPort(cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = pkgcache.NewLayeredCache(redisCache)
	} else {
		svc = pkgcache.NewMemoryCache()
	}
	return internalrepo.NewRedisReportCache(svc, cfg.Redis.ReportTTL), nil
}

// ProvideRunRegistry creates the in-memory run registry.
func ProvideRunRegistry() *usecase.RunRegistry {
	return usecase.NewRunRegistry()
}

// ProvideProgressPipeline creates the progress event fan-out.
func ProvideProgressPipeline(m repository.Metrics) *mid.ProgressPipeline {
	return mid.NewProgressPipeline(m,
		mid.WithMaxEPS(20),
		mid.WithBufferSize(2000),
	)
}

// ProvideTuneRunner creates the tuning run orchestrator.
func ProvideTuneRunner(
	store repository.DatasetStore,
	lrn repository.Learner,
	sink repository.ReportSink,
	cache repository.ReportCache,
	m repository.Metrics,
	log *applogger.Logger,
	registry *usecase.RunRegistry,
	progress *mid.ProgressPipeline,
	cfg *config.Config,
) *usecase.TuneRunner {
	return usecase.NewTuneRunner(store, lrn, sink, cache, m, log, registry, progress, cfg)
}

// ProvideJobsHandler registers the handler for the tuning jobs topic.
func ProvideJobsHandler(runner *usecase.TuneRunner, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	return usecase.NewKafkaJobsHandler(cfg.Kafka.JobsTopic, runner, m)
}

// ProvideHTTPHandler creates the runs API handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	runner *usecase.TuneRunner,
	registry *usecase.RunRegistry,
	cache repository.ReportCache,
	store repository.DatasetStore,
	progress *mid.ProgressPipeline,
) xhttp.Handler {
	ws := api.NewRunsWSHandler(log, registry, progress)
	return api.NewRunsHandler(log, runner, registry, cache, store, ws)
}

// ProvideApp creates the application server. In production the error-log
// collector aggregates repeated errors and ships them to Kafka.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	runner *usecase.TuneRunner,
	progress *mid.ProgressPipeline,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	jobs pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	if cfg.Environment == "production" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "voltune.logs",
			Publisher:      logPublisher{producer: producer},
		})
	}
	return server.New(cfg, log, runner, progress, consumer, jobs, chClient, handler)
}

// logPublisher adapts the Kafka producer to the collector's publish boundary.
type logPublisher struct {
	producer *pkgkafka.Producer
}

func (l logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return l.producer.Publish(ctx, topic, nil, payload)
}
