package transport

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-deforestation-monitor/internal/config"
	apperrors "go-deforestation-monitor/internal/errors"
	"go-deforestation-monitor/internal/history"
	"go-deforestation-monitor/internal/imagery"
	"go-deforestation-monitor/internal/logger"
	"go-deforestation-monitor/internal/metrics"
	"go-deforestation-monitor/internal/stats"
	"go-deforestation-monitor/internal/storage"
)

type ProcessRequest struct {
	Path string `json:"path" binding:"required"`
}

type BatchRequest struct {
	Directory string `json:"directory" binding:"required"`
}

type UploadAssetRequest struct {
	Path string `json:"path" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler wires all HTTP routes. remote may be nil when no remote store
// is configured; its endpoints then answer 503.
func NewHandler(
	pipeline *imagery.Pipeline,
	aggregator *stats.Aggregator,
	uploads *history.Log,
	remote storage.RemoteStore,
	cfg *config.Config,
) http.Handler {
	r := gin.Default()

	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/process", processImage(pipeline, aggregator))
		api.POST("/batch-process", batchProcess(pipeline, aggregator))
		api.POST("/upload-image", uploadImage(pipeline, aggregator, uploads, cfg))
		api.GET("/statistics", readStatistics(aggregator))
		api.GET("/processor-status", processorStatus(pipeline))
		api.GET("/upload-history", uploadHistory(uploads))

		api.GET("/assets", listAssets(remote, cfg))
		api.POST("/assets", uploadAsset(remote, cfg))
		api.DELETE("/assets/:id", deleteAsset(remote, cfg))
	}

	return r
}

func processImage(pipeline *imagery.Pipeline, aggregator *stats.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		start := time.Now()
		result, err := pipeline.Process(req.Path)
		if err != nil {
			metrics.ProcessingFailures.Inc()
			respondError(c, apperrors.GetStatusCode(err), "failed to process image", err)
			return
		}
		metrics.ImagesProcessed.Inc()
		metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
		if result.DeforestationPercentage >= stats.DeforestedCountThreshold {
			metrics.DeforestedDetections.Inc()
		}

		record, recErr := aggregator.Record(filepath.Base(req.Path), result)
		if recErr != nil {
			logger.WithError(recErr).Warn("Statistics not durable for this result")
		}

		c.JSON(http.StatusOK, gin.H{
			"results": result,
			"stats":   record,
		})
	}
}

func batchProcess(pipeline *imagery.Pipeline, aggregator *stats.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		metrics.BatchRuns.Inc()
		report, err := pipeline.BatchProcess(req.Directory)
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to run batch", err)
			return
		}

		// Fold every successful entry into the persisted statistics.
		for _, entry := range report.Results {
			if entry.Status != imagery.StatusSuccess || entry.Result == nil {
				metrics.ProcessingFailures.Inc()
				continue
			}
			metrics.ImagesProcessed.Inc()
			if entry.Result.DeforestationPercentage >= stats.DeforestedCountThreshold {
				metrics.DeforestedDetections.Inc()
			}
			if _, recErr := aggregator.Record(entry.File, entry.Result); recErr != nil {
				logger.WithError(recErr).WithField("file", entry.File).Warn("Statistics not durable for batch entry")
			}
		}

		record, readErr := aggregator.Read()
		if readErr != nil {
			logger.WithError(readErr).Warn("Failed to read statistics after batch")
		}

		c.JSON(http.StatusOK, gin.H{
			"batch": report,
			"stats": record,
		})
	}
}

func uploadImage(
	pipeline *imagery.Pipeline,
	aggregator *stats.Aggregator,
	uploads *history.Log,
	cfg *config.Config,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			respondError(c, http.StatusBadRequest, "missing image file", err)
			return
		}

		original := filepath.Base(fileHeader.Filename)
		if !imagery.IsSupportedFile(original) {
			respondError(c, http.StatusBadRequest, "unsupported file extension",
				fmt.Errorf("file %q is not one of %s", original, strings.Join(imagery.SupportedExtensions, ", ")))
			return
		}

		storedName := uuid.NewString() + strings.ToLower(filepath.Ext(original))
		storedPath := filepath.Join(cfg.UploadRoot, "satellite_images", storedName)
		if err := c.SaveUploadedFile(fileHeader, storedPath); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to store upload", err)
			return
		}

		entry, histErr := uploads.Append(history.UploadEntry{
			OriginalFilename: original,
			StoredFilename:   storedName,
			SizeBytes:        fileHeader.Size,
			ContentType:      fileHeader.Header.Get("Content-Type"),
		})
		if histErr != nil {
			logger.WithError(histErr).Warn("Failed to record upload history")
		}

		logger.WithFields(logrus.Fields{
			"original": original,
			"stored":   storedName,
			"size":     fileHeader.Size,
		}).Info("Image uploaded")

		response := gin.H{
			"filename":        original,
			"stored_filename": storedName,
			"upload":          entry,
		}

		// process=true analyzes the upload immediately and folds it into
		// the running statistics.
		if c.Query("process") == "true" {
			start := time.Now()
			result, procErr := pipeline.Process(storedPath)
			if procErr != nil {
				metrics.ProcessingFailures.Inc()
				respondError(c, apperrors.GetStatusCode(procErr), "failed to process upload", procErr)
				return
			}
			metrics.ImagesProcessed.Inc()
			metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
			if result.DeforestationPercentage >= stats.DeforestedCountThreshold {
				metrics.DeforestedDetections.Inc()
			}

			record, recErr := aggregator.Record(storedName, result)
			if recErr != nil {
				logger.WithError(recErr).Warn("Statistics not durable for this result")
			}
			response["results"] = result
			response["stats"] = record
		}

		c.JSON(http.StatusOK, response)
	}
}

func readStatistics(aggregator *stats.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := aggregator.Read()
		if err != nil {
			logger.WithError(err).Warn("Returning empty statistics record")
		}
		c.JSON(http.StatusOK, record)
	}
}

func processorStatus(pipeline *imagery.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, pipeline.Status())
	}
}

func uploadHistory(uploads *history.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := uploads.Entries()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to read upload history", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"uploads": entries})
	}
}

func listAssets(remote storage.RemoteStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if remote == nil {
			respondRemoteUnavailable(c)
			return
		}
		ctx, cancel := requestContext(c, cfg)
		defer cancel()

		assets, err := remote.List(ctx)
		if err != nil {
			respondError(c, http.StatusBadGateway, "failed to list assets", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"assets": assets})
	}
}

func uploadAsset(remote storage.RemoteStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if remote == nil {
			respondRemoteUnavailable(c)
			return
		}
		var req UploadAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		ctx, cancel := requestContext(c, cfg)
		defer cancel()

		assetID, err := remote.Upload(ctx, req.Path)
		if err != nil {
			respondError(c, http.StatusBadGateway, "failed to upload asset", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"asset_id": assetID})
	}
}

func deleteAsset(remote storage.RemoteStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if remote == nil {
			respondRemoteUnavailable(c)
			return
		}
		ctx, cancel := requestContext(c, cfg)
		defer cancel()

		if err := remote.Delete(ctx, c.Param("id")); err != nil {
			respondError(c, http.StatusBadGateway, "failed to delete asset", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func requestContext(c *gin.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondRemoteUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   http.StatusText(http.StatusServiceUnavailable),
		Message: "remote asset store is not configured",
	})
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
