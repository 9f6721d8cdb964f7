package capture

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/example/disaster-mapping/internal/logging"
)

// UploadResult summarizes the API's answer for one frame.
type UploadResult struct {
	RequestID    string
	TotalObjects int
}

// UploadStats counts uploader activity since start.
type UploadStats struct {
	Uploaded      int64
	Failed        int64
	BytesUploaded int64
}

// Uploader pushes frames to the segmentation API with bounded retries
// and exponential backoff between attempts.
type Uploader struct {
	client         *resty.Client
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu    sync.Mutex
	stats UploadStats
}

// NewUploader builds an uploader from the agent's API configuration.
func NewUploader(cfg APIConfig, logger *zap.Logger) *Uploader {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	max := cfg.MaxBackoff
	if max < initial {
		max = initial
	}

	return &Uploader{
		client:         client,
		logger:         logger.Named("uploader"),
		retryAttempts:  attempts,
		initialBackoff: initial,
		maxBackoff:     max,
	}
}

// Upload sends one frame, retrying failed attempts up to the limit.
func (u *Uploader) Upload(ctx context.Context, frame *Frame) (*UploadResult, error) {
	backoff := u.initialBackoff
	var lastErr error
	for attempt := 0; attempt < u.retryAttempts; attempt++ {
		if attempt > 0 {
			u.logger.Info("retrying upload",
				zap.String("frame", frame.Name),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", u.retryAttempts))
			select {
			case <-ctx.Done():
				return nil, logging.NewOperationError("uploader.upload", frame.Name, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= u.maxBackoff {
				backoff = next
			}
		}

		result, err := u.post(ctx, frame)
		if err == nil {
			u.record(true, int64(len(frame.Data)))
			u.logger.Info("frame uploaded",
				zap.String("frame", frame.Name),
				zap.String("request_id", result.RequestID),
				zap.Int("total_objects", result.TotalObjects))
			return result, nil
		}
		lastErr = err
		u.logger.Warn("upload attempt failed",
			zap.String("frame", frame.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	u.record(false, 0)
	return nil, logging.NewOperationError("uploader.upload", frame.Name, lastErr)
}

func (u *Uploader) post(ctx context.Context, frame *Frame) (*UploadResult, error) {
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("image", frame.Name, bytes.NewReader(frame.Data)).
		Post("/api/segment")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("api returned status %d", resp.StatusCode())
	}

	totalObjects := 0
	if raw := resp.Header().Get("X-Total-Objects"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			totalObjects = parsed
		}
	}
	return &UploadResult{
		RequestID:    resp.Header().Get("X-Request-ID"),
		TotalObjects: totalObjects,
	}, nil
}

func (u *Uploader) record(success bool, bytesUploaded int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if success {
		u.stats.Uploaded++
		u.stats.BytesUploaded += bytesUploaded
	} else {
		u.stats.Failed++
	}
}

// Stats returns a snapshot of upload counters.
func (u *Uploader) Stats() UploadStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stats
}
