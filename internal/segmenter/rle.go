package segmenter

import "fmt"

// DecodeRLE expands an uncompressed COCO-style run-length encoding into
// a bitmap. Counts alternate between background and foreground runs,
// starting with background, laid out in column-major order over a
// height x width grid (the layout SAM's mask generator emits).
func DecodeRLE(counts []int, height, width int) (*Bitmap, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("rle: non-positive mask size %dx%d", width, height)
	}

	total := 0
	for i, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("rle: negative run length at index %d", i)
		}
		total += c
	}
	if total != height*width {
		return nil, fmt.Errorf("rle: runs cover %d pixels, mask size is %d", total, height*width)
	}

	bm := NewBitmap(width, height)
	pos := 0
	for i, c := range counts {
		if i%2 == 1 {
			for p := pos; p < pos+c; p++ {
				// Column-major: pixel p maps to column p/height, row p%height.
				bm.Set(p/height, p%height)
			}
		}
		pos += c
	}
	return bm, nil
}
