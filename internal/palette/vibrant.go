package palette

import (
	"github.com/genricoloni/bloom/internal/domain"
	"github.com/lucasb-eyer/go-colorful"
)

// GrayscaleThreshold is the vibrancy score below which a palette is
// considered effectively grayscale, so the accent should fall back to the
// image's dominant color instead.
const GrayscaleThreshold = 0.05

// Vibrancy scores how visually prominent a color is: HSV saturation times
// value, in [0,1]. Fully saturated bright colors score 1, grays score 0.
func Vibrancy(c domain.Color) float64 {
	cf := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	_, s, v := cf.Hsv()
	return s * v
}

// Vibrant returns the most visually prominent color of the palette.
// The result is always an element of the palette; ties keep the earliest
// entry. An empty palette yields black.
func Vibrant(p domain.Palette) domain.Color {
	var best domain.Color
	bestScore := -1.0
	for _, c := range p.Colors {
		if score := Vibrancy(c); score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}
