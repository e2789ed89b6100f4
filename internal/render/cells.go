package render

import (
	"math"

	"github.com/genricoloni/bloom/internal/domain"
	"github.com/lucasb-eyer/go-colorful"
)

// CellGrid is the feedback state of the animation: one phase value in [0,1)
// per coarse cell, advanced every frame by a fixed per-cell rate. The rate is
// modulated by the blended coarse palette so brighter regions of the cover
// art drift faster.
type CellGrid struct {
	width  int
	height int
	states []float64
	rates  []float64
}

// Base drift in cycles per second; per-cell jitter keeps cells out of phase.
const (
	baseRate   = 0.05
	rateJitter = 0.04
)

// NewCellGrid creates a grid with deterministically seeded phases and rates
func NewCellGrid(width, height int) *CellGrid {
	g := &CellGrid{
		width:  width,
		height: height,
		states: make([]float64, width*height),
		rates:  make([]float64, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			g.states[i] = hash01(x, y, 0)
			g.rates[i] = baseRate + rateJitter*hash01(x, y, 1)
		}
	}
	return g
}

// Step advances every cell's phase by rate*dt, modulated by the luminance of
// the matching coarse palette cell. Phases wrap in [0,1).
func (g *CellGrid) Step(dt float64, coarse domain.Palette) {
	modulated := coarse.Len() == len(g.states)
	for i := range g.states {
		rate := g.rates[i]
		if modulated {
			rate *= 0.5 + luminance(coarse.Colors[i])
		}
		g.states[i] = frac(g.states[i] + rate*dt)
	}
}

// Sample reads the state field at fractional grid coordinates with bilinear
// interpolation. Both axes wrap, so the vertical scroll offset can grow
// without bound.
func (g *CellGrid) Sample(u, v float64) float64 {
	u -= 0.5
	v -= 0.5
	x0 := int(math.Floor(u))
	y0 := int(math.Floor(v))
	fx := u - float64(x0)
	fy := v - float64(y0)

	s00 := g.at(x0, y0)
	s10 := g.at(x0+1, y0)
	s01 := g.at(x0, y0+1)
	s11 := g.at(x0+1, y0+1)

	top := s00 + (s10-s00)*fx
	bottom := s01 + (s11-s01)*fx
	return top + (bottom-top)*fy
}

// StateAt returns the raw phase of cell (x, y), for inspection
func (g *CellGrid) StateAt(x, y int) float64 {
	return g.states[y*g.width+x]
}

func (g *CellGrid) at(x, y int) float64 {
	x = wrapIndex(x, g.width)
	y = wrapIndex(y, g.height)
	return g.states[y*g.width+x]
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func luminance(c domain.Color) float64 {
	cf := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	_, _, v := cf.Hsv()
	return v
}

func frac(v float64) float64 {
	return v - math.Floor(v)
}

// hash01 is a small integer hash mapped to [0,1), used for deterministic
// per-cell seeding
func hash01(x, y, salt int) float64 {
	h := uint32(x)*374761393 + uint32(y)*668265263 + uint32(salt)*2246822519
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h) / float64(math.MaxUint32+1)
}
