package segmenter

import (
	"context"
	"errors"
	"image"
)

// ErrInvalidInput marks requests whose image is missing, empty, or
// undecodable. It is never retried and maps to a client-side fault.
var ErrInvalidInput = errors.New("invalid input image")

// ErrModelInference marks failures of the segmentation backend itself.
// It maps to a server-side fault; the caller decides whether to retry.
var ErrModelInference = errors.New("model inference failed")

// Mask is one candidate region produced by the model, aligned to the
// input image's pixel grid.
type Mask struct {
	Bitmap     *Bitmap
	Confidence float64
}

// Area returns the number of pixels covered by the mask.
func (m Mask) Area() int {
	if m.Bitmap == nil {
		return 0
	}
	return m.Bitmap.Area()
}

// Model is the capability interface for the opaque segmentation
// backend: given an image, return an ordered sequence of scored masks.
// Implementations must preserve the backend's ordering.
type Model interface {
	Generate(ctx context.Context, img image.Image) ([]Mask, error)
}

// Bitmap is an immutable per-pixel membership grid.
type Bitmap struct {
	width  int
	height int
	bits   []bool
	area   int
}

// NewBitmap allocates an empty width x height bitmap.
func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{
		width:  width,
		height: height,
		bits:   make([]bool, width*height),
	}
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }

// Area returns the count of set pixels.
func (b *Bitmap) Area() int { return b.area }

// At reports whether the pixel at (x, y) belongs to the mask.
// Out-of-bounds coordinates are not part of any mask.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return false
	}
	return b.bits[y*b.width+x]
}

// Set marks the pixel at (x, y) as belonging to the mask.
func (b *Bitmap) Set(x, y int) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	idx := y*b.width + x
	if !b.bits[idx] {
		b.bits[idx] = true
		b.area++
	}
}
