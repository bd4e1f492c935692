package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		JobsTopic    string   `yaml:"jobs_topic"`
		ReportsTopic string   `yaml:"reports_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Host      string        `yaml:"host"`
		Port      int           `yaml:"port"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		ReportTTL time.Duration `yaml:"report_ttl"`
	} `yaml:"redis"`
	Tuning struct {
		Lookback     int         `yaml:"lookback"`
		Assess       int         `yaml:"assess"`
		Step         int         `yaml:"step"`
		SampleSize   int         `yaml:"sample_size"`
		Seed         int         `yaml:"seed"`
		Metric       string      `yaml:"metric"`
		TestFraction float64     `yaml:"test_fraction"`
		Workers      int         `yaml:"workers"`
		Iterations   int         `yaml:"iterations"`
		RunOnStart   bool        `yaml:"run_on_start"`
		Space        []ParamSpec `yaml:"space"`
	} `yaml:"tuning"`
}

// ParamSpec declares one tunable dimension in YAML. Kind is one of
// "continuous", "integer", "choice". A data_driven range has its upper bound
// resolved against the training set's feature count at run time.
type ParamSpec struct {
	Name       string    `yaml:"name"`
	Kind       string    `yaml:"kind"`
	Min        float64   `yaml:"min"`
	Max        float64   `yaml:"max"`
	Choices    []float64 `yaml:"choices"`
	DataDriven bool      `yaml:"data_driven"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("TUNE_SEED"); v != "" {
		if seed, err := strconv.Atoi(v); err == nil {
			c.Tuning.Seed = seed
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Tuning.Metric == "" {
		c.Tuning.Metric = "auc"
	}
	if c.Tuning.TestFraction == 0 {
		c.Tuning.TestFraction = 0.2
	}
	if c.Tuning.SampleSize == 0 {
		c.Tuning.SampleSize = 20
	}
	if c.Redis.ReportTTL == 0 {
		c.Redis.ReportTTL = 24 * time.Hour
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Table == "" {
		return fmt.Errorf("clickhouse.table is required")
	}
	if c.Tuning.Lookback <= 0 || c.Tuning.Assess <= 0 || c.Tuning.Step <= 0 {
		return fmt.Errorf("tuning.lookback, tuning.assess and tuning.step must be positive")
	}
	if c.Tuning.Metric != "auc" && c.Tuning.Metric != "accuracy" {
		return fmt.Errorf("tuning.metric must be 'auc' or 'accuracy', got '%s'", c.Tuning.Metric)
	}
	if c.Tuning.TestFraction <= 0 || c.Tuning.TestFraction >= 1 {
		return fmt.Errorf("tuning.test_fraction must be in (0,1)")
	}
	if len(c.Tuning.Space) == 0 {
		return fmt.Errorf("tuning.space cannot be empty")
	}
	for _, p := range c.Tuning.Space {
		if p.Name == "" {
			return fmt.Errorf("tuning.space entries require a name")
		}
		switch p.Kind {
		case "continuous", "integer", "choice":
		default:
			return fmt.Errorf("tuning.space.%s: kind must be continuous, integer or choice", p.Name)
		}
	}
	return nil
}
