package render

import "github.com/genricoloni/bloom/internal/domain"

// Transition holds the previous/target palette pair and the interpolation
// progress between them. Progress advances by a fixed step each frame and is
// clamped to [0,1]; it only resets when a new palette pair arrives.
type Transition struct {
	prevCoarse   domain.Palette
	targetCoarse domain.Palette
	prevFine     domain.Palette
	targetFine   domain.Palette
	progress     float64
	step         float64
	initialized  bool
}

// NewTransition creates a transition advancing by step per frame
func NewTransition(step float64) *Transition {
	return &Transition{step: step}
}

// Set installs a freshly extracted palette pair as the new target.
// The previous pair becomes whatever was the target before; on the very
// first call there is no previous pair, so the new palettes fill both sides
// and the blend is an identity.
func (t *Transition) Set(coarse, fine domain.Palette) {
	if t.initialized {
		t.prevCoarse = t.targetCoarse
		t.prevFine = t.targetFine
	} else {
		t.prevCoarse = coarse
		t.prevFine = fine
		t.initialized = true
	}
	t.targetCoarse = coarse
	t.targetFine = fine
	t.progress = 0
}

// Advance moves progress one step toward 1.0, clamping at 1.0
func (t *Transition) Advance() {
	t.progress += t.step
	if t.progress > 1 {
		t.progress = 1
	}
}

// Progress returns the current interpolation factor in [0,1]
func (t *Transition) Progress() float64 {
	return t.progress
}

// BlendedCoarse returns the coarse palette interpolated at current progress
func (t *Transition) BlendedCoarse() domain.Palette {
	return blendPalettes(t.prevCoarse, t.targetCoarse, t.progress)
}

// BlendedFine returns the fine palette interpolated at current progress
func (t *Transition) BlendedFine() domain.Palette {
	return blendPalettes(t.prevFine, t.targetFine, t.progress)
}

func blendPalettes(prev, target domain.Palette, f float64) domain.Palette {
	if f >= 1 || prev.Len() != target.Len() {
		return target
	}
	out := domain.NewPalette(target.Width, target.Height)
	for i := range target.Colors {
		out.Colors[i] = lerpColor(prev.Colors[i], target.Colors[i], f)
	}
	return out
}

func lerpColor(a, b domain.Color, f float64) domain.Color {
	return domain.Color{
		R: lerpChannel(a.R, b.R, f),
		G: lerpChannel(a.G, b.G, f),
		B: lerpChannel(a.B, b.B, f),
	}
}

func lerpChannel(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
}
