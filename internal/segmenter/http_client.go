package segmenter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/example/disaster-mapping/internal/logging"
)

// HTTPModel talks to a SAM inference sidecar over HTTP. The sidecar
// accepts a PNG body and answers with run-length encoded masks in the
// order the mask generator produced them.
type HTTPModel struct {
	client *resty.Client
	logger *zap.Logger
}

type wireMask struct {
	// Size is [height, width], matching the RLE layout.
	Size   [2]int  `json:"size"`
	Counts []int   `json:"counts"`
	Score  float64 `json:"score"`
}

type generateResponse struct {
	Masks []wireMask `json:"masks"`
}

// NewHTTPModel builds a client for the inference backend at endpoint.
func NewHTTPModel(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPModel {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout)
	return &HTTPModel{client: client, logger: logger.Named("sam_client")}
}

// Generate implements Model.
func (m *HTTPModel) Generate(ctx context.Context, img image.Image) ([]Mask, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, logging.NewOperationError("segmenter.encode_request", "",
			fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	var out generateResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "image/png").
		SetBody(buf.Bytes()).
		SetResult(&out).
		Post("/generate")
	if err != nil {
		wrapped := logging.NewOperationError("segmenter.generate", "",
			fmt.Errorf("%w: %v", ErrModelInference, err))
		m.logger.Error("inference request failed", zap.Error(wrapped))
		return nil, wrapped
	}
	if resp.IsError() {
		wrapped := logging.NewOperationError("segmenter.generate", "",
			fmt.Errorf("%w: backend returned status %d", ErrModelInference, resp.StatusCode()))
		m.logger.Error("inference backend error",
			zap.Int("status", resp.StatusCode()),
			zap.Error(wrapped))
		return nil, wrapped
	}

	masks := make([]Mask, 0, len(out.Masks))
	for i, wm := range out.Masks {
		bm, err := DecodeRLE(wm.Counts, wm.Size[0], wm.Size[1])
		if err != nil {
			wrapped := logging.NewOperationError("segmenter.decode_mask", "",
				fmt.Errorf("%w: mask %d: %v", ErrModelInference, i, err))
			m.logger.Error("mask decode failed", zap.Int("mask", i), zap.Error(wrapped))
			return nil, wrapped
		}
		masks = append(masks, Mask{Bitmap: bm, Confidence: wm.Score})
	}
	return masks, nil
}

// Ping checks the inference backend's health endpoint.
func (m *HTTPModel) Ping(ctx context.Context) error {
	resp, err := m.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return logging.NewOperationError("segmenter.ping", "", err)
	}
	if resp.IsError() {
		return logging.NewOperationError("segmenter.ping", "",
			fmt.Errorf("backend returned status %d", resp.StatusCode()))
	}
	return nil
}
