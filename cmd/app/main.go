package main

import (
	"flag"
	"log"
	"os"

	"VolTune/internal/di"
	"VolTune/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s metric=%s", cfg.Environment, cfg.Tuning.Metric)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected - db: %s table: %s", cfg.ClickHouse.Database, cfg.ClickHouse.Table)
	log.Printf("kafka: brokers=%v jobs=%s reports=%s", cfg.Kafka.Brokers, cfg.Kafka.JobsTopic, cfg.Kafka.ReportsTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
