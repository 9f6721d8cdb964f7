package overlay

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/example/disaster-mapping/internal/segmenter"
)

// Decode parses uploaded image bytes into a pixel image. Formats are
// the ones the upload boundary advertises: JPEG, PNG, GIF, WebP, BMP
// and TIFF. Empty, undecodable, or zero-dimension inputs are invalid.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", segmenter.ErrInvalidInput)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", segmenter.ErrInvalidInput, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s image has zero dimensions", segmenter.ErrInvalidInput, format)
	}
	return img, nil
}
