package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
environment: test
server:
  port: 8080
clickhouse:
  host: localhost
  port: 9000
  database: research
  table: firm_month_panel
kafka:
  brokers: ["localhost:9092"]
  jobs_topic: tune.jobs
  reports_topic: tune.reports
tuning:
  lookback: 10000
  assess: 4000
  step: 5000
  sample_size: 20
  seed: 234
  space:
    - {name: max_depth, kind: integer, min: 2, max: 12}
    - {name: learning_rate, kind: continuous, min: 0.01, max: 0.3}
    - {name: feature_count, kind: integer, min: 1, data_driven: true}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Tuning.Lookback != 10000 || c.Tuning.Assess != 4000 || c.Tuning.Step != 5000 {
		t.Fatalf("window = %d/%d/%d", c.Tuning.Lookback, c.Tuning.Assess, c.Tuning.Step)
	}
	if c.Tuning.Metric != "auc" {
		t.Fatalf("default metric = %q, want auc", c.Tuning.Metric)
	}
	if c.Tuning.TestFraction != 0.2 {
		t.Fatalf("default test_fraction = %v, want 0.2", c.Tuning.TestFraction)
	}
	if len(c.Tuning.Space) != 3 || !c.Tuning.Space[2].DataDriven {
		t.Fatalf("space = %+v", c.Tuning.Space)
	}
}

func TestLoadRejectsBadMetric(t *testing.T) {
	bad := validYAML + "  metric: rmse\n"
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected metric validation error")
	}
}

func TestLoadRejectsMissingWindow(t *testing.T) {
	bad := `
environment: test
clickhouse: {host: localhost, table: t}
tuning:
  lookback: 10
  assess: 0
  step: 5
  space: [{name: d, kind: integer, min: 1, max: 3}]
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected window validation error")
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	bad := `
environment: test
clickhouse: {host: localhost, table: t}
tuning:
  lookback: 10
  assess: 4
  step: 5
  space: [{name: d, kind: categorical, min: 1, max: 3}]
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected param kind validation error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TUNE_SEED", "777")
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	c, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Tuning.Seed != 777 {
		t.Fatalf("seed = %d, want 777", c.Tuning.Seed)
	}
	if c.ClickHouse.Host != "ch.internal" {
		t.Fatalf("host = %q", c.ClickHouse.Host)
	}
}
