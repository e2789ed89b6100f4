package domain

import "fmt"

// PlayerStatus represents the current state of the media player
type PlayerStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlayerStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlayerStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlayerStatus = "Stopped"
)

// TrackMetadata contains information about the currently playing track
type TrackMetadata struct {
	// TrackID uniquely identifies the track within the player session
	TrackID string
	// Title of the currently playing track
	Title string
	// Artist name
	Artist string
	// Album name
	Album string
	// ThumbnailURL is the preferred cover image reference. It may be an
	// absolute URL, a local path, or a bare cover identifier that has to
	// be resolved through the cover endpoint.
	ThumbnailURL string
	// AlbumCover is the fallback cover reference when no thumbnail exists
	AlbumCover string
	// Status is the current playback status
	Status PlayerStatus
}

// Color is an immutable 8-bit RGB triple
type Color struct {
	R, G, B uint8
}

// RGB renders the color as a CSS rgb() value
func (c Color) RGB() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// RGBA renders the color as a CSS rgba() value with the given alpha
func (c Color) RGBA(alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.R, c.G, c.B, alpha)
}

// Palette is an ordered, fixed-size grid of colors sampled from an image.
// Invariant: len(Colors) == Width*Height.
type Palette struct {
	Width  int
	Height int
	Colors []Color
}

// NewPalette allocates a zero (black) palette with the given grid dimensions
func NewPalette(width, height int) Palette {
	return Palette{
		Width:  width,
		Height: height,
		Colors: make([]Color, width*height),
	}
}

// Len returns the number of colors in the palette
func (p Palette) Len() int {
	return len(p.Colors)
}

// At returns the color at grid position (x, y)
func (p Palette) At(x, y int) Color {
	return p.Colors[y*p.Width+x]
}

// PaletteSet is the complete result of one cover-art extraction: a coarse
// display grid, a finer stretched grid, and the image's dominant color.
type PaletteSet struct {
	Coarse   Palette
	Fine     Palette
	Dominant Color
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}
