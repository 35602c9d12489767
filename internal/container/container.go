package container

import (
	"fmt"
	"net/http"

	"go-deforestation-monitor/internal/config"
	"go-deforestation-monitor/internal/history"
	"go-deforestation-monitor/internal/imagery"
	"go-deforestation-monitor/internal/logger"
	"go-deforestation-monitor/internal/stats"
	"go-deforestation-monitor/internal/storage"
	"go-deforestation-monitor/internal/transport"
)

// Container holds all application dependencies.
type Container struct {
	config     *config.Config
	classifier imagery.Classifier
	pipeline   *imagery.Pipeline
	aggregator *stats.Aggregator
	uploads    *history.Log
	remote     storage.RemoteStore
	handler    http.Handler
}

// NewContainer builds the dependency graph from configuration.
func NewContainer(cfg *config.Config) (*Container, error) {
	classifier, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}

	pipeline, err := imagery.NewPipeline(cfg, classifier)
	if err != nil {
		return nil, err
	}

	aggregator := stats.NewAggregator(cfg.StatsFile)
	uploads := history.NewLog(cfg.UploadHistoryFile)

	var remote storage.RemoteStore
	if cfg.RemoteStoreConfigured() {
		remote, err = storage.NewAzureRemoteStore(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer)
		if err != nil {
			return nil, fmt.Errorf("failed to build remote store: %w", err)
		}
	} else {
		logger.Info("Remote asset store not configured; asset endpoints disabled")
	}

	handler := transport.NewHandler(pipeline, aggregator, uploads, remote, cfg)

	return &Container{
		config:     cfg,
		classifier: classifier,
		pipeline:   pipeline,
		aggregator: aggregator,
		uploads:    uploads,
		remote:     remote,
		handler:    handler,
	}, nil
}

func buildClassifier(cfg *config.Config) (imagery.Classifier, error) {
	switch cfg.ClassifierMode {
	case config.ClassifierModeModel:
		return imagery.NewModelClassifier(cfg.ModelPath, cfg.ModelMetadataPath)
	default:
		return imagery.NewRuleClassifier(cfg.ForestThreshold, cfg.DeforestedThreshold), nil
	}
}

// Handler returns the HTTP handler.
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases classifier resources.
func (c *Container) Close() {
	if mc, ok := c.classifier.(*imagery.ModelClassifier); ok {
		mc.Close()
	}
}
