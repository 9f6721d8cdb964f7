package overlay

import "image/color"

// palette is the fixed set of tint colors for detected objects.
var palette = []color.NRGBA{
	{R: 0xE6, G: 0x19, B: 0x4B, A: 0xFF}, // red
	{R: 0x3C, G: 0xB4, B: 0x4B, A: 0xFF}, // green
	{R: 0x43, G: 0x63, B: 0xD8, A: 0xFF}, // blue
	{R: 0xFF, G: 0xE1, B: 0x19, A: 0xFF}, // yellow
	{R: 0xF5, G: 0x82, B: 0x31, A: 0xFF}, // orange
	{R: 0x91, G: 0x1E, B: 0xB4, A: 0xFF}, // purple
	{R: 0x42, G: 0xD4, B: 0xF4, A: 0xFF}, // cyan
	{R: 0xF0, G: 0x32, B: 0xE6, A: 0xFF}, // magenta
	{R: 0xBF, G: 0xEF, B: 0x45, A: 0xFF}, // lime
	{R: 0x9A, G: 0x63, B: 0x24, A: 0xFF}, // brown
}

// Color assigns a tint to the object at the given position in the
// filtered mask ordering, cycling the palette when the object count
// exceeds it. Pure function of the index.
func Color(i int) color.NRGBA {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// PaletteSize reports how many colors are available before cycling.
func PaletteSize() int { return len(palette) }
