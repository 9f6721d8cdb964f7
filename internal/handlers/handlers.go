package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/disaster-mapping/internal/config"
	"github.com/example/disaster-mapping/internal/repository"
	"github.com/example/disaster-mapping/internal/segmenter"
	"github.com/example/disaster-mapping/internal/usecase"
)

// MaxUploadSize is the default cap on uploaded image size.
const MaxUploadSize = 10 * 1024 * 1024

// SegmentationService is the subset of the use case the HTTP layer depends on.
type SegmentationService interface {
	Segment(ctx context.Context, imageBytes []byte) (string, []byte, *usecase.SegmentationResult, error)
	GetResult(ctx context.Context, requestID string) (*repository.SegmentationLog, error)
	GetDuplicateReport(ctx context.Context, requestID string) (*usecase.DuplicateReport, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// RegisterRoutes wires the segmentation HTTP handlers to the Gin router.
// authMiddleware may be nil when auth is disabled.
func RegisterRoutes(router *gin.Engine, svc SegmentationService, upload config.UploadConfig, authMiddleware gin.HandlerFunc) {
	maxSize := upload.MaxSize
	if maxSize <= 0 {
		maxSize = MaxUploadSize
	}
	allowed := make(map[string]struct{}, len(upload.AllowedTypes))
	for _, t := range upload.AllowedTypes {
		allowed[t] = struct{}{}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "AI Disaster Mapping API is running"})
	})

	api := router.Group("/api")
	if authMiddleware != nil {
		api.Use(authMiddleware)
	}

	api.POST("/segment", func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}

		if file.Size > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file too large, maximum size: %dMB", maxSize/(1024*1024)),
			})
			return
		}

		contentType := file.Header.Get("Content-Type")
		if _, ok := allowed[contentType]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}
		if len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty file provided"})
			return
		}

		requestID, overlayPNG, result, err := svc.Segment(c.Request.Context(), data)
		if err != nil {
			if errors.Is(err, segmenter.ErrInvalidInput) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "image could not be decoded"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process image with segmentation service"})
			return
		}

		resultsJSON, err := json.Marshal(result)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serialize segmentation results"})
			return
		}

		c.Header("X-Request-ID", requestID)
		c.Header("X-Segmentation-Results", string(resultsJSON))
		c.Header("X-Processing-Time", strconv.FormatFloat(result.ProcessingTime, 'f', -1, 64))
		c.Header("X-Total-Objects", strconv.Itoa(result.TotalObjects))
		c.Header("Access-Control-Expose-Headers", "X-Segmentation-Results, X-Processing-Time, X-Total-Objects, X-Request-ID")
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=processed_%s", file.Filename))
		c.Data(http.StatusOK, "image/png", overlayPNG)
	})

	api.GET("/segment/health", func(c *gin.Context) {
		formats := upload.AllowedTypes
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"service":           "segment",
			"supported_formats": formats,
			"max_file_size_mb":  maxSize / (1024 * 1024),
		})
	})

	api.GET("/results/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		log, err := svc.GetResult(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		var objects []usecase.DetectedObject
		if log.Objects != "" {
			if err := json.Unmarshal([]byte(log.Objects), &objects); err != nil {
				objects = nil
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":       log.RequestID,
			"sha1_hash":        log.SHA1Hash,
			"total_objects":    log.TotalObjects,
			"processing_time":  log.ProcessingTime,
			"detected_objects": objects,
			"created_at":       log.CreatedAt,
		})
	})

	api.GET("/results/:id/duplicates", func(c *gin.Context) {
		requestID := c.Param("id")
		report, err := svc.GetDuplicateReport(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":      report.Request.RequestID,
			"sha1_hash":       report.Request.SHA1Hash,
			"duplicate_count": len(report.Duplicates),
			"duplicates":      report.Duplicates,
		})
	})

	api.GET("/metrics", func(c *gin.Context) {
		summary, err := svc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate metrics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}
