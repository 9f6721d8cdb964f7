package overlay

import "testing"

func TestColorCyclesPalette(t *testing.T) {
	n := PaletteSize()
	for i := 0; i < n; i++ {
		if Color(i) != Color(i+n) {
			t.Fatalf("index %d and %d should map to the same color", i, i+n)
		}
	}
}

func TestColorIsDeterministic(t *testing.T) {
	for i := 0; i < 3*PaletteSize(); i++ {
		if Color(i) != Color(i) {
			t.Fatalf("color for index %d is not stable", i)
		}
	}
}

func TestFirstColorsAreDistinct(t *testing.T) {
	seen := make(map[[4]uint8]int)
	for i := 0; i < PaletteSize(); i++ {
		c := Color(i)
		key := [4]uint8{c.R, c.G, c.B, c.A}
		if prev, ok := seen[key]; ok {
			t.Fatalf("indices %d and %d share a color", prev, i)
		}
		seen[key] = i
	}
}
