package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ClassifierMode selects which Classifier implementation the pipeline uses.
type ClassifierMode string

const (
	ClassifierModeRule  ClassifierMode = "rule"
	ClassifierModeModel ClassifierMode = "model"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	// Pipeline
	OutputRoot          string
	UploadRoot          string
	TargetSize          int
	ForestThreshold     float64
	DeforestedThreshold float64
	BatchWorkers        int

	// Classifier selection
	ClassifierMode    ClassifierMode
	ModelPath         string
	ModelMetadataPath string

	// Statistics and upload bookkeeping
	StatsFile         string
	UploadHistoryFile string

	// Remote asset store (optional)
	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// RemoteStoreConfigured reports whether Azure credentials were provided.
func (c *Config) RemoteStoreConfigured() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func LoadFromEnv() (*Config, error) {
	uploadRoot := getEnvOrDefault("UPLOAD_ROOT", "uploads")

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 100*1024*1024), // 100MB

		OutputRoot:          getEnvOrDefault("OUTPUT_ROOT", "processed_images"),
		UploadRoot:          uploadRoot,
		TargetSize:          int(parseIntOrDefault("TARGET_SIZE", 512)),
		ForestThreshold:     parseFloatOrDefault("FOREST_THRESHOLD", 0.3),
		DeforestedThreshold: parseFloatOrDefault("DEFORESTED_THRESHOLD", 0.1),
		BatchWorkers:        int(parseIntOrDefault("BATCH_WORKERS", 1)),

		ClassifierMode:    ClassifierMode(getEnvOrDefault("CLASSIFIER_MODE", string(ClassifierModeRule))),
		ModelPath:         os.Getenv("MODEL_PATH"),
		ModelMetadataPath: os.Getenv("MODEL_METADATA_PATH"),

		StatsFile:         getEnvOrDefault("STATS_FILE", filepath.Join(uploadRoot, "processing_stats.json")),
		UploadHistoryFile: getEnvOrDefault("UPLOAD_HISTORY_FILE", filepath.Join(uploadRoot, "upload_history.json")),

		AzureAccountName: os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:  os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainer:   getEnvOrDefault("AZURE_CONTAINER", "analysis-artifacts"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", cfg.RequestTimeout)
	}
	if cfg.TargetSize <= 0 {
		return nil, fmt.Errorf("TARGET_SIZE must be > 0 (got %d)", cfg.TargetSize)
	}
	if cfg.BatchWorkers < 1 {
		return nil, fmt.Errorf("BATCH_WORKERS must be >= 1 (got %d)", cfg.BatchWorkers)
	}
	if cfg.DeforestedThreshold >= cfg.ForestThreshold {
		return nil, fmt.Errorf("DEFORESTED_THRESHOLD (%g) must be below FOREST_THRESHOLD (%g)",
			cfg.DeforestedThreshold, cfg.ForestThreshold)
	}
	switch cfg.ClassifierMode {
	case ClassifierModeRule:
	case ClassifierModeModel:
		if cfg.ModelPath == "" || cfg.ModelMetadataPath == "" {
			return nil, fmt.Errorf("CLASSIFIER_MODE=model requires MODEL_PATH and MODEL_METADATA_PATH")
		}
	default:
		return nil, fmt.Errorf("invalid CLASSIFIER_MODE: %q", cfg.ClassifierMode)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
