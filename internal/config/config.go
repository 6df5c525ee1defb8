// Package config loads auditor configuration from a YAML file overlaid
// with environment variables, following the shape (and the file-then-env
// precedence) the teacher repo's internal/config package uses for its own
// settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// KafkaConfig configures the optional Produce-v0 report sink (C12).
type KafkaConfig struct {
	Broker     string `yaml:"broker"`
	Topic      string `yaml:"topic"`
	ClientID   string `yaml:"client_id"`
	Partition  int32  `yaml:"partition"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Config holds all auditor configuration.
type Config struct {
	StorePath          string        `yaml:"store_path"`
	RulesPath          string        `yaml:"rules_path"`
	MaxConcurrentScans int           `yaml:"max_concurrent_scans"`
	HTTPAddr           string        `yaml:"http_addr"`
	ExcludedDirs       []string      `yaml:"excluded_dirs"`
	Kafka              KafkaConfig   `yaml:"kafka"`
	Logging            LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the baseline configuration before a file or
// environment overlay is applied.
func DefaultConfig() *Config {
	return &Config{
		StorePath:          "auditor.db",
		RulesPath:          "",
		MaxConcurrentScans: 0, // 0 == resolved to NumCPU at orchestrator construction
		HTTPAddr:           ":8080",
		ExcludedDirs:       []string{"target", "node_modules"},
		Kafka:              KafkaConfig{Partition: 0, TimeoutMs: 5000},
		Logging:            LoggingConfig{Debug: false},
	}
}

// Load reads a YAML config file (if path is non-empty and exists) on top
// of DefaultConfig, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overlays non-empty environment variables onto cfg,
// per spec.md §6: "Empty strings are ignored; file config is overlaid by
// env."
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUDITOR_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("AUDITOR_RULES_PATH"); v != "" {
		cfg.RulesPath = v
	}
	if v := os.Getenv("AUDITOR_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("AUDITOR_MAX_CONCURRENT_SCANS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentScans = n
		}
	}
	if v := os.Getenv("AUDITOR_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Debug = b
		}
	}
	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		cfg.Kafka.Broker = v
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("KAFKA_CLIENT_ID"); v != "" {
		cfg.Kafka.ClientID = v
	}
	if v := os.Getenv("KAFKA_PARTITION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Kafka.Partition = int32(n)
		}
	}
	if v := os.Getenv("KAFKA_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Kafka.TimeoutMs = n
		}
	}
}
