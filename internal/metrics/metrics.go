package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImagesProcessed counts successfully classified images.
	ImagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deforestation_images_processed_total",
		Help: "Number of images successfully classified.",
	})

	// ProcessingFailures counts images that failed to load or classify.
	ProcessingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deforestation_processing_failures_total",
		Help: "Number of images that failed to process.",
	})

	// BatchRuns counts batch-process invocations.
	BatchRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deforestation_batch_runs_total",
		Help: "Number of batch processing runs.",
	})

	// DeforestedDetections counts images at or above the deforested
	// statistics threshold.
	DeforestedDetections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deforestation_deforested_images_total",
		Help: "Number of images counted as deforested.",
	})

	// ProcessingDuration observes wall time per single-image pipeline run.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deforestation_processing_duration_seconds",
		Help:    "Time spent running the analysis pipeline per image.",
		Buckets: prometheus.DefBuckets,
	})
)
