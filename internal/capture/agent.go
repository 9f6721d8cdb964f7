package capture

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Agent runs the field capture loop: grab a frame on every tick, spool
// it, and drain the spool through the uploader. Frames that exhaust
// their upload attempts are parked so one bad frame cannot wedge the
// loop.
type Agent struct {
	source       FrameSource
	uploader     FrameUploader
	logger       *zap.Logger
	interval     time.Duration
	maxSpool     int
	maxRequeues  int
	spool        []*Frame
	parkedFrames int
}

// FrameUploader is the uploader capability the agent depends on.
type FrameUploader interface {
	Upload(ctx context.Context, frame *Frame) (*UploadResult, error)
}

// NewAgent assembles the capture loop.
func NewAgent(source FrameSource, uploader FrameUploader, cfg CameraConfig, logger *zap.Logger) *Agent {
	interval := cfg.CaptureInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	maxSpool := cfg.MaxSpool
	if maxSpool <= 0 {
		maxSpool = 50
	}
	return &Agent{
		source:      source,
		uploader:    uploader,
		logger:      logger.Named("capture_agent"),
		interval:    interval,
		maxSpool:    maxSpool,
		maxRequeues: 3,
	}
}

// Run loops until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("capture agent started",
		zap.Duration("interval", a.interval),
		zap.Int("max_spool", a.maxSpool))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("capture agent stopping",
				zap.Int("spooled", len(a.spool)),
				zap.Int("parked", a.parkedFrames))
			return ctx.Err()
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Agent) tick(ctx context.Context) {
	frame, err := a.source.Capture(ctx)
	switch {
	case errors.Is(err, ErrNoFrame):
		// Nothing new this tick.
	case err != nil:
		a.logger.Warn("capture failed", zap.Error(err))
	default:
		a.enqueue(frame)
	}

	a.drain(ctx)
}

func (a *Agent) enqueue(frame *Frame) {
	if len(a.spool) >= a.maxSpool {
		// Drop the oldest spooled frame to bound memory on the device.
		dropped := a.spool[0]
		a.spool = a.spool[1:]
		a.logger.Warn("spool full, dropping oldest frame", zap.String("frame", dropped.Name))
	}
	a.spool = append(a.spool, frame)
}

func (a *Agent) drain(ctx context.Context) {
	remaining := a.spool[:0]
	for i, frame := range a.spool {
		if ctx.Err() != nil {
			remaining = append(remaining, a.spool[i:]...)
			break
		}

		if _, err := a.uploader.Upload(ctx, frame); err != nil {
			frame.retries++
			if frame.retries >= a.maxRequeues {
				a.parkedFrames++
				a.logger.Error("frame parked after repeated upload failures",
					zap.String("frame", frame.Name),
					zap.Error(err))
				continue
			}
			remaining = append(remaining, frame)
		}
	}
	a.spool = remaining
}

// SpoolDepth reports how many frames are waiting for upload.
func (a *Agent) SpoolDepth() int { return len(a.spool) }

// ParkedFrames reports how many frames were abandoned.
func (a *Agent) ParkedFrames() int { return a.parkedFrames }
