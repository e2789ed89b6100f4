package render

import (
	"testing"

	"github.com/genricoloni/bloom/internal/domain"
)

func TestCellGrid_StatesStayInRange(t *testing.T) {
	g := NewCellGrid(8, 6)
	coarse := solidPalette(8, 6, domain.Color{R: 255, G: 255, B: 255})

	for step := 0; step < 500; step++ {
		g.Step(0.033, coarse)
	}

	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			s := g.StateAt(x, y)
			if s < 0 || s >= 1 {
				t.Fatalf("state (%d,%d) out of [0,1): %f", x, y, s)
			}
		}
	}
}

func TestCellGrid_Deterministic(t *testing.T) {
	a := NewCellGrid(8, 6)
	b := NewCellGrid(8, 6)
	coarse := solidPalette(8, 6, domain.Color{R: 90, G: 120, B: 200})

	for step := 0; step < 50; step++ {
		a.Step(0.033, coarse)
		b.Step(0.033, coarse)
	}

	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			if a.StateAt(x, y) != b.StateAt(x, y) {
				t.Fatalf("grids diverged at (%d,%d): %f vs %f",
					x, y, a.StateAt(x, y), b.StateAt(x, y))
			}
		}
	}
}

func TestCellGrid_StepAdvancesStates(t *testing.T) {
	g := NewCellGrid(4, 4)
	before := make([]float64, 0, 16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			before = append(before, g.StateAt(x, y))
		}
	}

	g.Step(1.0, domain.Palette{})

	moved := false
	i := 0
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if g.StateAt(x, y) != before[i] {
				moved = true
			}
			i++
		}
	}
	if !moved {
		t.Error("Step did not advance any cell state")
	}
}

func TestCellGrid_BrightPaletteDriftsFaster(t *testing.T) {
	dark := NewCellGrid(4, 4)
	bright := NewCellGrid(4, 4)

	darkStart := dark.StateAt(0, 0)
	brightStart := bright.StateAt(0, 0)

	dark.Step(0.5, solidPalette(4, 4, domain.Color{}))
	bright.Step(0.5, solidPalette(4, 4, domain.Color{R: 255, G: 255, B: 255}))

	darkDelta := frac(dark.StateAt(0, 0) - darkStart)
	brightDelta := frac(bright.StateAt(0, 0) - brightStart)

	if brightDelta <= darkDelta {
		t.Errorf("bright palette should drift faster: dark %f, bright %f", darkDelta, brightDelta)
	}
}

func TestCellGrid_SampleWraps(t *testing.T) {
	g := NewCellGrid(8, 6)
	coords := []struct{ u, v float64 }{
		{0.3, 0.7},
		{4.5, 3.2},
		{7.9, 5.9},
	}

	for _, c := range coords {
		base := g.Sample(c.u, c.v)
		wrapped := g.Sample(c.u+8, c.v+6)
		if base != wrapped {
			t.Errorf("Sample(%f,%f)=%f differs from wrapped copy %f", c.u, c.v, base, wrapped)
		}
		negative := g.Sample(c.u-8, c.v-6)
		if base != negative {
			t.Errorf("Sample(%f,%f)=%f differs from negative wrap %f", c.u, c.v, base, negative)
		}
	}
}

func TestWrapIndex(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 5, 0},
		{4, 5, 4},
		{5, 5, 0},
		{7, 5, 2},
		{-1, 5, 4},
		{-6, 5, 4},
	}
	for _, tt := range tests {
		if got := wrapIndex(tt.i, tt.n); got != tt.want {
			t.Errorf("wrapIndex(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}
