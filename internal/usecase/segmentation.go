package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/disaster-mapping/internal/logging"
	"github.com/example/disaster-mapping/internal/overlay"
	"github.com/example/disaster-mapping/internal/repository"
	"github.com/example/disaster-mapping/internal/segmenter"
)

// SegmentationRepository defines the persistence operations needed by the use case.
type SegmentationRepository interface {
	SaveLog(ctx context.Context, log *repository.SegmentationLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.SegmentationLog, error)
	FindByImageHash(ctx context.Context, hash, excludeRequestID string) ([]*repository.SegmentationLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// SegmentationUseCase encapsulates the segmentation request flow:
// building the overlay response, caching it, and persisting a log row.
type SegmentationUseCase struct {
	repo           SegmentationRepository
	cache          Cache
	model          segmenter.Model
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type cachedSegmentation struct {
	RequestID      string    `json:"request_id"`
	TotalObjects   int       `json:"total_objects"`
	ProcessingTime float64   `json:"processing_time"`
	Objects        string    `json:"objects"`
	Hash           string    `json:"sha1_hash"`
	CreatedAt      time.Time `json:"created_at"`
}

// DuplicateReport lists earlier requests that uploaded the same image.
type DuplicateReport struct {
	Request    *repository.SegmentationLog
	Duplicates []*repository.SegmentationLog
}

// NewSegmentationUseCase constructs a new use case instance.
func NewSegmentationUseCase(repo SegmentationRepository, cache Cache, model segmenter.Model, logger *zap.Logger) *SegmentationUseCase {
	return &SegmentationUseCase{
		repo:           repo,
		cache:          cache,
		model:          model,
		logger:         logger.Named("segmentation_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Segment decodes the uploaded bytes, runs the response builder, and
// records the outcome. It returns the request ID, the PNG overlay, and
// the structured result. No partial output: on error all returns are zero.
func (uc *SegmentationUseCase) Segment(ctx context.Context, imageBytes []byte) (string, []byte, *SegmentationResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.segment_image", requestID)

	img, err := overlay.Decode(imageBytes)
	if err != nil {
		opLogger.Warn("image decode failed", zap.Error(err))
		return "", nil, nil, err
	}

	cacheKey := fmt.Sprintf("segmentation:%s", requestID)
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.processing", func() error {
		return uc.cache.Set(ctx, cacheKey, "processing", time.Minute)
	}); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return "", nil, nil, err
	}

	overlayPNG, result, err := BuildResponse(ctx, uc.model, img)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.build_response", requestID, err)
		opLogger.Error("segmentation pipeline failed", zap.Error(wrapped))
		return "", nil, nil, wrapped
	}

	hash := sha1.Sum(imageBytes)
	hashHex := hex.EncodeToString(hash[:])

	objectsJSON, err := json.Marshal(result.DetectedObjects)
	if err != nil {
		opLogger.Error("failed to serialize detected objects", zap.Error(err))
		return "", nil, nil, err
	}

	log := &repository.SegmentationLog{
		RequestID:      requestID,
		SHA1Hash:       hashHex,
		TotalObjects:   result.TotalObjects,
		ProcessingTime: result.ProcessingTime,
		Objects:        string(objectsJSON),
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist segmentation log", zap.Error(wrapped))
		return "", nil, nil, wrapped
	}

	cached := cachedSegmentation{
		RequestID:      requestID,
		TotalObjects:   log.TotalObjects,
		ProcessingTime: log.ProcessingTime,
		Objects:        log.Objects,
		Hash:           log.SHA1Hash,
		CreatedAt:      log.CreatedAt,
	}
	serialized, err := json.Marshal(cached)
	if err != nil {
		opLogger.Error("failed to serialize segmentation result", zap.Error(err))
		return "", nil, nil, err
	}
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), 5*time.Minute)
	}); err != nil {
		opLogger.Error("failed to cache segmentation result", zap.Error(err))
		return "", nil, nil, err
	}

	opLogger.Info("segmentation completed",
		zap.Int("total_objects", result.TotalObjects),
		zap.Float64("processing_time", result.ProcessingTime))

	return requestID, overlayPNG, result, nil
}

// GetResult retrieves a cached segmentation outcome or loads from persistence.
func (uc *SegmentationUseCase) GetResult(ctx context.Context, requestID string) (*repository.SegmentationLog, error) {
	cacheKey := fmt.Sprintf("segmentation:%s", requestID)
	if cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey); err == nil {
		var payload cachedSegmentation
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
		} else if payload.RequestID != "" {
			return &repository.SegmentationLog{
				RequestID:      payload.RequestID,
				SHA1Hash:       payload.Hash,
				TotalObjects:   payload.TotalObjects,
				ProcessingTime: payload.ProcessingTime,
				Objects:        payload.Objects,
				CreatedAt:      payload.CreatedAt,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to read cache", zap.Error(err))
	}

	return uc.repo.FindByRequestID(ctx, requestID)
}

// GetDuplicateReport lists earlier uploads of the same image bytes.
func (uc *SegmentationUseCase) GetDuplicateReport(ctx context.Context, requestID string) (*DuplicateReport, error) {
	log, err := uc.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	duplicates, err := uc.repo.FindByImageHash(ctx, log.SHA1Hash, log.RequestID)
	if err != nil {
		return nil, err
	}

	return &DuplicateReport{Request: log, Duplicates: duplicates}, nil
}

func (uc *SegmentationUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, requestID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *SegmentationUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
