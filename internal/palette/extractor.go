package palette

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // GIF format support
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"github.com/genricoloni/bloom/internal/domain"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // WebP format support
)

// Extraction modes. "sample" keeps the raw grid averages, "quantize" snaps
// them to a small k-means color set for a flatter, poster-like look.
const (
	ModeSample   = "sample"
	ModeQuantize = "quantize"
)

// Grid dimensions for the two palette resolutions. The coarse grid drives
// the cell feedback pass, the fine grid is the stretched color lookup.
const (
	CoarseWidth  = 8
	CoarseHeight = 6
	FineWidth    = 24
	FineHeight   = 18
)

const (
	quantizeColors  = 12
	quantizeSampleW = 48
	quantizeSampleH = 48
)

// Extractor derives palette grids and a dominant color from cover art
type Extractor struct {
	logger *zap.Logger
	cfg    domain.Config
}

// NewExtractor creates a new cover-art palette extractor
func NewExtractor(logger *zap.Logger, cfg domain.Config) *Extractor {
	return &Extractor{logger: logger, cfg: cfg}
}

// Extract decodes the image and produces the coarse and fine palette grids
// plus the image's dominant color
func (e *Extractor) Extract(ctx context.Context, imageData []byte) (*domain.PaletteSet, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	coarse := samplePalette(img, CoarseWidth, CoarseHeight)
	fine := samplePalette(img, FineWidth, FineHeight)

	if e.cfg.GetPaletteMode() == ModeQuantize {
		centers, err := clusterColors(img, quantizeColors)
		if err != nil {
			// Quantization is a refinement; keep the sampled grids on failure
			e.logger.Warn("Color quantization failed, keeping sampled palettes", zap.Error(err))
		} else {
			coarse = snapToCenters(coarse, centers)
			fine = snapToCenters(fine, centers)
		}
	}

	dom := dominantcolor.Find(img)

	e.logger.Debug("Palette extracted",
		zap.String("format", format),
		zap.Int("coarse", coarse.Len()),
		zap.Int("fine", fine.Len()),
		zap.String("dominant", dominantcolor.Hex(dom)))

	return &domain.PaletteSet{
		Coarse:   coarse,
		Fine:     fine,
		Dominant: domain.Color{R: dom.R, G: dom.G, B: dom.B},
	}, nil
}

// samplePalette box-downsamples the image to the grid dimensions so each
// output pixel is the average color of its cell
func samplePalette(img image.Image, width, height int) domain.Palette {
	small := imaging.Resize(img, width, height, imaging.Box)
	p := domain.NewPalette(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := small.NRGBAAt(x, y)
			p.Colors[y*width+x] = domain.Color{R: c.R, G: c.G, B: c.B}
		}
	}
	return p
}

// clusterColors k-means clusters a subsampled copy of the image and returns
// the cluster centers as colors
func clusterColors(img image.Image, k int) ([]domain.Color, error) {
	small := imaging.Resize(img, quantizeSampleW, quantizeSampleH, imaging.Box)

	var obs clusters.Observations
	for y := 0; y < quantizeSampleH; y++ {
		for x := 0; x < quantizeSampleW; x++ {
			c := small.NRGBAAt(x, y)
			obs = append(obs, clusters.Coordinates{
				float64(c.R) / 255.0,
				float64(c.G) / 255.0,
				float64(c.B) / 255.0,
			})
		}
	}

	km := kmeans.New()
	result, err := km.Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("k-means partition failed: %w", err)
	}

	centers := make([]domain.Color, 0, len(result))
	for _, cluster := range result {
		center := cluster.Center
		if len(center) < 3 {
			continue
		}
		centers = append(centers, domain.Color{
			R: uint8(clamp01(center[0]) * 255),
			G: uint8(clamp01(center[1]) * 255),
			B: uint8(clamp01(center[2]) * 255),
		})
	}
	if len(centers) == 0 {
		return nil, fmt.Errorf("k-means produced no cluster centers")
	}
	return centers, nil
}

// snapToCenters replaces every palette entry with its nearest cluster center
func snapToCenters(p domain.Palette, centers []domain.Color) domain.Palette {
	out := domain.NewPalette(p.Width, p.Height)
	for i, c := range p.Colors {
		out.Colors[i] = nearestColor(c, centers)
	}
	return out
}

func nearestColor(c domain.Color, candidates []domain.Color) domain.Color {
	best := candidates[0]
	bestDist := colorDistSq(c, best)
	for _, cand := range candidates[1:] {
		if d := colorDistSq(c, cand); d < bestDist {
			best = cand
			bestDist = d
		}
	}
	return best
}

func colorDistSq(a, b domain.Color) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
