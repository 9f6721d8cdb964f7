package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/example/disaster-mapping/internal/segmenter"
)

// tintAlpha is the fixed opacity of the mask tint over the source pixel.
const tintAlpha = 0.5

// Composite renders the overlay: each mask's pixels are blended with
// the tint for its position in the ordering; pixels outside every mask
// are copied through unchanged. Masks are applied sequentially, so
// where masks overlap the later mask's tint wins. The blend always
// reads the original source pixel, never a previously applied tint.
func Composite(src image.Image, masks []segmenter.Mask) *image.RGBA {
	bounds := src.Bounds()

	base := image.NewRGBA(bounds)
	draw.Draw(base, bounds, src, bounds.Min, draw.Src)

	out := image.NewRGBA(bounds)
	copy(out.Pix, base.Pix)

	for i, m := range masks {
		if m.Bitmap == nil {
			continue
		}
		tint := Color(i)
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				if !m.Bitmap.At(x, y) {
					continue
				}
				px := bounds.Min.X + x
				py := bounds.Min.Y + y
				out.SetRGBA(px, py, blend(base.RGBAAt(px, py), tint))
			}
		}
	}
	return out
}

// EncodePNG serializes the composited overlay for the response body.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blend(src color.RGBA, tint color.NRGBA) color.RGBA {
	return color.RGBA{
		R: mix(src.R, tint.R),
		G: mix(src.G, tint.G),
		B: mix(src.B, tint.B),
		A: 0xFF,
	}
}

func mix(s, t uint8) uint8 {
	return uint8(math.Round(float64(s)*(1-tintAlpha) + float64(t)*tintAlpha))
}
