package domain

import "context"

// Monitor defines the interface for watching media playback events.
// Implementations should handle D-Bus/MPRIS communication.
type Monitor interface {
	// Start begins monitoring for media events
	// It should block until context is cancelled or an error occurs
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor
	Stop(ctx context.Context) error

	// Events returns a read-only channel that emits TrackMetadata
	// when the playing track changes
	Events() <-chan TrackMetadata
}

// Fetcher defines the interface for retrieving cover artwork
type Fetcher interface {
	// Fetch downloads or reads image data from a URL or local path
	// Returns the raw image bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor defines the interface for deriving palettes from cover art
type Extractor interface {
	// Extract analyzes raw image data and produces the coarse and fine
	// palette grids plus the image's dominant color
	Extract(ctx context.Context, imageData []byte) (*PaletteSet, error)
}

// PaletteTarget receives freshly extracted palettes. Implemented by the
// render pipeline, which blends from its current palettes toward these.
type PaletteTarget interface {
	SetPalettes(coarse, fine Palette)
}

// StyleSink receives the accent color derived from the current track
type StyleSink interface {
	// Apply updates the exported style variables from the accent color
	Apply(accent Color)
}

// FrameSink receives encoded frames from the render pipeline
type FrameSink interface {
	// Present publishes a freshly encoded JPEG frame
	Present(frame []byte)
}

// Config defines the configuration surface shared across components
type Config interface {
	// GetPaletteMode returns the extraction mode ("sample" or "quantize")
	GetPaletteMode() string

	// GetOutputDir returns the directory for exported files
	GetOutputDir() string

	// GetCoverBaseURL returns the cover endpoint used to resolve bare
	// cover identifiers into absolute URLs
	GetCoverBaseURL() string

	// GetPerformanceLevel returns the rendering performance hint
	// ("low" selects the lightweight mode)
	GetPerformanceLevel() string
}
