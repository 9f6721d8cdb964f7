package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/disaster-mapping/internal/logging"
)

// SegmentationLog represents a persisted segmentation request.
type SegmentationLog struct {
	ID             uint      `gorm:"primaryKey"`
	RequestID      string    `gorm:"column:request_id;uniqueIndex;size:64"`
	SHA1Hash       string    `gorm:"column:sha1_hash;index;size:40"`
	TotalObjects   int       `gorm:"column:total_objects"`
	ProcessingTime float64   `gorm:"column:processing_time"`
	Objects        string    `gorm:"column:objects;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (SegmentationLog) TableName() string {
	return "segmentation_logs"
}

// MetricsAggregation holds raw aggregates over segmentation logs.
type MetricsAggregation struct {
	TotalCount            int64
	TotalObjects          int64
	AverageObjects        float64
	AverageProcessingTime float64
}

// SegmentationRepository provides persistence APIs for segmentation logs.
type SegmentationRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewSegmentationRepository creates a new repository instance.
func NewSegmentationRepository(db *gorm.DB, logger *zap.Logger) *SegmentationRepository {
	return &SegmentationRepository{
		db:             db,
		logger:         logger.Named("segmentation_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *SegmentationRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&SegmentationLog{})
}

// SaveLog persists a segmentation log entry.
func (r *SegmentationRepository) SaveLog(ctx context.Context, log *SegmentationLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByRequestID retrieves a segmentation log by its request identifier.
func (r *SegmentationRepository) FindByRequestID(ctx context.Context, requestID string) (*SegmentationLog, error) {
	var log SegmentationLog
	err := r.executeWithRetry(ctx, "repository.find_by_request_id", requestID, func() error {
		return r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// FindByImageHash lists earlier requests carrying the same image hash,
// newest first, excluding the given request.
func (r *SegmentationRepository) FindByImageHash(ctx context.Context, hash, excludeRequestID string) ([]*SegmentationLog, error) {
	var logs []*SegmentationLog
	err := r.executeWithRetry(ctx, "repository.find_by_image_hash", excludeRequestID, func() error {
		return r.db.WithContext(ctx).
			Where("sha1_hash = ? AND request_id <> ?", hash, excludeRequestID).
			Order("created_at DESC").
			Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// AggregateMetrics computes request counts and averages over all logs.
func (r *SegmentationRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		row := r.db.WithContext(ctx).
			Model(&SegmentationLog{}).
			Select("COUNT(*), COALESCE(SUM(total_objects), 0), COALESCE(AVG(total_objects), 0), COALESCE(AVG(processing_time), 0)").
			Row()
		return row.Scan(&agg.TotalCount, &agg.TotalObjects, &agg.AverageObjects, &agg.AverageProcessingTime)
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *SegmentationRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
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
