package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/example/disaster-mapping/internal/overlay"
	"github.com/example/disaster-mapping/internal/segmenter"
)

// DetectedObject describes one retained mask in the response metadata.
type DetectedObject struct {
	ID         int     `json:"id"`
	Confidence float64 `json:"confidence"`
	AreaPixels int     `json:"area_pixels"`
}

// SegmentationResult is the structured metadata returned alongside the
// overlay image. TotalObjects always equals len(DetectedObjects).
type SegmentationResult struct {
	DetectedObjects []DetectedObject `json:"detected_objects"`
	ProcessingTime  float64          `json:"processing_time"`
	TotalObjects    int              `json:"total_objects"`
}

// BuildResponse runs the segmentation response pipeline: invoke the
// model, drop zero-area masks, composite the tinted overlay, and
// assemble per-object metadata. It performs no I/O of its own and
// either returns a complete (overlay, result) pair or an error.
//
// The image must have positive dimensions; violations are reported as
// ErrInvalidInput before the model is invoked. Model faults surface as
// ErrModelInference. Processing time covers inference plus compositing
// and is rounded to two decimal places.
func BuildResponse(ctx context.Context, model segmenter.Model, img image.Image) ([]byte, *SegmentationResult, error) {
	if img == nil {
		return nil, nil, fmt.Errorf("%w: nil image", segmenter.ErrInvalidInput)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, nil, fmt.Errorf("%w: image has zero dimensions", segmenter.ErrInvalidInput)
	}

	start := time.Now()

	masks, err := model.Generate(ctx, img)
	if err != nil {
		if !errors.Is(err, segmenter.ErrModelInference) {
			err = fmt.Errorf("%w: %v", segmenter.ErrModelInference, err)
		}
		return nil, nil, err
	}

	retained := make([]segmenter.Mask, 0, len(masks))
	for _, m := range masks {
		if m.Area() == 0 {
			continue
		}
		retained = append(retained, m)
	}

	composited := overlay.Composite(img, retained)

	objects := make([]DetectedObject, len(retained))
	for i, m := range retained {
		objects[i] = DetectedObject{
			ID:         i,
			Confidence: clampConfidence(m.Confidence),
			AreaPixels: m.Area(),
		}
	}

	elapsed := roundSeconds(time.Since(start).Seconds())

	encoded, err := overlay.EncodePNG(composited)
	if err != nil {
		return nil, nil, err
	}

	return encoded, &SegmentationResult{
		DetectedObjects: objects,
		ProcessingTime:  elapsed,
		TotalObjects:    len(objects),
	}, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func roundSeconds(s float64) float64 {
	return math.Round(s*100) / 100
}
