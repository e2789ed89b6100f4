package palette

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/genricoloni/bloom/internal/domain"
	"go.uber.org/zap"
)

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name          string
		imageData     []byte
		mode          string
		expectedError string
		validateFunc  func(t *testing.T, set *domain.PaletteSet)
	}{
		{
			name:      "Success - Solid Red JPEG",
			imageData: createTestJPEG(100, 100, color.RGBA{R: 220, G: 20, B: 20, A: 255}),
			mode:      ModeSample,
			validateFunc: func(t *testing.T, set *domain.PaletteSet) {
				if set.Coarse.Len() != CoarseWidth*CoarseHeight {
					t.Errorf("coarse palette length: want %d, got %d", CoarseWidth*CoarseHeight, set.Coarse.Len())
				}
				if set.Fine.Len() != FineWidth*FineHeight {
					t.Errorf("fine palette length: want %d, got %d", FineWidth*FineHeight, set.Fine.Len())
				}
				// Every cell of a solid image should be close to the fill color
				for i, c := range set.Fine.Colors {
					if !closeTo(c, domain.Color{R: 220, G: 20, B: 20}, 30) {
						t.Errorf("fine color %d too far from red: %+v", i, c)
						break
					}
				}
				if !closeTo(set.Dominant, domain.Color{R: 220, G: 20, B: 20}, 30) {
					t.Errorf("dominant color too far from red: %+v", set.Dominant)
				}
			},
		},
		{
			name:      "Success - Gradient With Quantization",
			imageData: createGradientJPEG(128, 128),
			mode:      ModeQuantize,
			validateFunc: func(t *testing.T, set *domain.PaletteSet) {
				if set.Coarse.Len() != CoarseWidth*CoarseHeight {
					t.Errorf("coarse palette length: want %d, got %d", CoarseWidth*CoarseHeight, set.Coarse.Len())
				}
				if set.Fine.Len() != FineWidth*FineHeight {
					t.Errorf("fine palette length: want %d, got %d", FineWidth*FineHeight, set.Fine.Len())
				}
				distinct := map[domain.Color]struct{}{}
				for _, c := range set.Fine.Colors {
					distinct[c] = struct{}{}
				}
				if len(distinct) > quantizeColors {
					t.Errorf("quantized palette has %d distinct colors, want <= %d", len(distinct), quantizeColors)
				}
			},
		},
		{
			name:          "Error - Invalid Image Data",
			imageData:     []byte("not-an-image"),
			mode:          ModeSample,
			expectedError: "failed to decode cover image",
		},
		{
			name:          "Error - Empty Data",
			imageData:     []byte{},
			mode:          ModeSample,
			expectedError: "failed to decode cover image",
		},
		{
			name:          "Error - Corrupted JPEG",
			imageData:     []byte{0xFF, 0xD8, 0xFF, 0x00, 0x00}, // Partial JPEG header
			mode:          ModeSample,
			expectedError: "failed to decode cover image",
		},
		{
			name:      "Edge Case - Tiny Image",
			imageData: createTestJPEG(2, 2, color.RGBA{R: 40, G: 200, B: 90, A: 255}),
			mode:      ModeSample,
			validateFunc: func(t *testing.T, set *domain.PaletteSet) {
				if set.Fine.Len() != FineWidth*FineHeight {
					t.Errorf("fine palette length: want %d, got %d", FineWidth*FineHeight, set.Fine.Len())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &testConfig{paletteMode: tt.mode}
			extractor := NewExtractor(zap.NewNop(), cfg)
			set, err := extractor.Extract(context.Background(), tt.imageData)

			if tt.expectedError != "" {
				if err == nil {
					t.Fatalf("expected error containing '%s', got nil", tt.expectedError)
				}
				if !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("expected error '%s' to contain '%s'", err.Error(), tt.expectedError)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.validateFunc != nil {
				tt.validateFunc(t, set)
			}
		})
	}
}

func TestSamplePalette_GridInvariant(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	p := samplePalette(img, CoarseWidth, CoarseHeight)
	if p.Width != CoarseWidth || p.Height != CoarseHeight {
		t.Errorf("palette dims: want %dx%d, got %dx%d", CoarseWidth, CoarseHeight, p.Width, p.Height)
	}
	if p.Len() != p.Width*p.Height {
		t.Errorf("palette length %d does not match dims %dx%d", p.Len(), p.Width, p.Height)
	}
}

func TestSnapToCenters(t *testing.T) {
	centers := []domain.Color{
		{R: 255, G: 0, B: 0},
		{R: 0, G: 0, B: 255},
	}
	p := domain.Palette{Width: 2, Height: 1, Colors: []domain.Color{
		{R: 200, G: 30, B: 10}, // near red
		{R: 20, G: 10, B: 240}, // near blue
	}}

	snapped := snapToCenters(p, centers)

	if snapped.Colors[0] != centers[0] {
		t.Errorf("expected snap to red, got %+v", snapped.Colors[0])
	}
	if snapped.Colors[1] != centers[1] {
		t.Errorf("expected snap to blue, got %+v", snapped.Colors[1])
	}
}

// createTestJPEG generates a solid-color JPEG image for testing
func createTestJPEG(width, height int, col color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, col)
		}
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic("failed to create test JPEG: " + err.Error())
	}
	return buf.Bytes()
}

// createGradientJPEG generates a red-to-blue gradient with enough distinct
// colors to keep k-means well conditioned
func createGradientJPEG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / width),
				G: uint8(255 * y / height),
				B: uint8(255 - 255*x/width),
				A: 255,
			})
		}
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic("failed to create test JPEG: " + err.Error())
	}
	return buf.Bytes()
}

func closeTo(a, b domain.Color, tolerance int) bool {
	return abs(int(a.R)-int(b.R)) <= tolerance &&
		abs(int(a.G)-int(b.G)) <= tolerance &&
		abs(int(a.B)-int(b.B)) <= tolerance
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// testConfig is a simple domain.Config implementation for tests
type testConfig struct {
	paletteMode string
}

func (c *testConfig) GetPaletteMode() string {
	if c.paletteMode == "" {
		return ModeSample
	}
	return c.paletteMode
}

func (c *testConfig) GetOutputDir() string        { return "/tmp/bloom-test" }
func (c *testConfig) GetCoverBaseURL() string     { return "http://127.0.0.1:8090/api/cover" }
func (c *testConfig) GetPerformanceLevel() string { return "high" }
