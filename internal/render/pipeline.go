package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/bloom/internal/domain"
	"github.com/genricoloni/bloom/internal/palette"
	"go.uber.org/zap"
)

const (
	frameInterval    = time.Second / 30
	frameIntervalLow = time.Second / 15

	// Full previous->target fade takes ~1.7s at 30fps
	transitionStep = 0.02

	// Vertical scroll in coarse grid rows per second; the offset wraps
	scrollSpeed = 0.35

	// Fine grid cell edge in pixels before the blur pass
	stretchScale = 16

	blurDownsample = 4
	blurSigma      = 3.5
	blurSigmaLow   = 2.0

	jpegQuality = 85
)

// Pipeline is the per-frame render loop: update cell states, render the
// blended palette colors at the stretched resolution, blur down, and present
// the final frame to the sink scaled to the canvas resolution.
type Pipeline struct {
	logger *zap.Logger
	res    *domain.ScreenResolution
	sink   domain.FrameSink

	interval time.Duration
	sigma    float64

	mu     sync.Mutex
	trans  *Transition
	cells  *CellGrid
	scroll float64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPipeline creates the render pipeline. The performance level "low"
// halves the frame rate and lightens the blur.
func NewPipeline(logger *zap.Logger, cfg domain.Config, res *domain.ScreenResolution, sink domain.FrameSink) *Pipeline {
	interval := frameInterval
	sigma := blurSigma
	if cfg.GetPerformanceLevel() == "low" {
		interval = frameIntervalLow
		sigma = blurSigmaLow
		logger.Info("Low performance mode selected",
			zap.Duration("frameInterval", interval))
	}

	return &Pipeline{
		logger:   logger,
		res:      res,
		sink:     sink,
		interval: interval,
		sigma:    sigma,
		trans:    NewTransition(transitionStep),
		cells:    NewCellGrid(palette.CoarseWidth, palette.CoarseHeight),
	}
}

// SetPalettes installs a new palette pair as the blend target. Safe to call
// from the track-change path while the frame loop is running.
func (p *Pipeline) SetPalettes(coarse, fine domain.Palette) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trans.Set(coarse, fine)
}

// Progress reports the current transition progress
func (p *Pipeline) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trans.Progress()
}

// Start launches the frame loop in a goroutine. It returns immediately.
func (p *Pipeline) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Info("Render pipeline starting",
		zap.Int("canvasWidth", p.res.Width),
		zap.Int("canvasHeight", p.res.Height),
		zap.Duration("frameInterval", p.interval))

	go p.runLoop(loopCtx)
	return nil
}

// Stop cancels the frame loop and waits for it to drain
func (p *Pipeline) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.logger.Info("Render pipeline stopped")
	return nil
}

func (p *Pipeline) runLoop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			p.tick(dt)
		}
	}
}

// tick produces and presents one frame; failures log and skip the frame
func (p *Pipeline) tick(dt float64) {
	frame, err := p.renderFrame(dt)
	if err != nil {
		p.logger.Error("Frame render failed", zap.Error(err))
		return
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, frame, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		p.logger.Error("Frame encode failed", zap.Error(err))
		return
	}
	p.sink.Present(buf.Bytes())
}

// renderFrame advances the animation by dt seconds and renders the final
// canvas-size image
func (p *Pipeline) renderFrame(dt float64) (*image.NRGBA, error) {
	if p.res.Width <= 0 || p.res.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas resolution: %dx%d", p.res.Width, p.res.Height)
	}

	p.mu.Lock()
	p.trans.Advance()
	coarse := p.trans.BlendedCoarse()
	fine := p.trans.BlendedFine()
	p.cells.Step(dt, coarse)
	p.scroll = math.Mod(p.scroll+scrollSpeed*dt, palette.CoarseHeight)
	cellImg := p.renderCells(fine)
	p.mu.Unlock()

	stretched := imaging.Resize(cellImg,
		palette.FineWidth*stretchScale, palette.FineHeight*stretchScale, imaging.Lanczos)

	low := imaging.Resize(stretched,
		stretched.Bounds().Dx()/blurDownsample, stretched.Bounds().Dy()/blurDownsample, imaging.Box)
	blurred := imaging.Blur(low, p.sigma)

	final := imaging.Resize(blurred, p.res.Width, p.res.Height, imaging.Lanczos)
	return final, nil
}

// renderCells maps the cell state field through the blended fine palette at
// the fine grid resolution. Before any palette arrives the grid renders
// black. Callers hold p.mu.
func (p *Pipeline) renderCells(fine domain.Palette) *image.NRGBA {
	img := imaging.New(palette.FineWidth, palette.FineHeight, color.NRGBA{A: 0xFF})
	if fine.Len() == 0 {
		return img
	}

	for y := 0; y < palette.FineHeight; y++ {
		for x := 0; x < palette.FineWidth; x++ {
			u := (float64(x) + 0.5) / palette.FineWidth * palette.CoarseWidth
			v := (float64(y)+0.5)/palette.FineHeight*palette.CoarseHeight + p.scroll
			state := frac(p.cells.Sample(u, v))

			idx := int(state * float64(fine.Len()))
			if idx >= fine.Len() {
				idx = fine.Len() - 1
			}
			c := fine.Colors[idx]
			img.Pix[(y*palette.FineWidth+x)*4+0] = c.R
			img.Pix[(y*palette.FineWidth+x)*4+1] = c.G
			img.Pix[(y*palette.FineWidth+x)*4+2] = c.B
			img.Pix[(y*palette.FineWidth+x)*4+3] = 0xFF
		}
	}
	return img
}
