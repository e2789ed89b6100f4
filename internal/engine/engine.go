package engine

import (
	"context"
	"time"

	"github.com/genricoloni/bloom/internal/domain"
	"github.com/genricoloni/bloom/internal/palette"
	"go.uber.org/zap"
)

// Engine orchestrates the cover-to-background pipeline. It listens to track
// events, resolves and fetches the cover, extracts palettes, and pushes the
// results into the render pipeline and the style sink.
type Engine struct {
	logger    *zap.Logger
	cfg       domain.Config
	monitor   domain.Monitor
	fetcher   domain.Fetcher
	extractor domain.Extractor
	pipeline  domain.PaletteTarget
	styles    domain.StyleSink

	// Identity of the last track handed to processTrack. Only touched by
	// the event loop goroutine, so no locking is needed: track updates are
	// serialized and a late extraction can never overwrite a newer one.
	currentTrackID string
}

// NewEngine creates a new orchestration engine
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	mon domain.Monitor,
	fetch domain.Fetcher,
	extract domain.Extractor,
	pipeline domain.PaletteTarget,
	styles domain.StyleSink,
) *Engine {
	return &Engine{
		logger:    logger,
		cfg:       cfg,
		monitor:   mon,
		fetcher:   fetch,
		extractor: extract,
		pipeline:  pipeline,
		styles:    styles,
	}
}

// Start launches the engine's event processing loop in a goroutine.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")
	go e.runLoop(ctx)
	return nil
}

// Stop gracefully stops the engine
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopped")
	return nil
}

// runLoop is the main event processing loop with debouncing. Rapid track
// skipping collapses into the last event, so only one extraction is in
// flight at a time.
func (e *Engine) runLoop(ctx context.Context) {
	events := e.monitor.Events()

	debounceDuration := 500 * time.Millisecond
	timer := time.NewTimer(debounceDuration)
	timer.Stop()

	var pendingMeta *domain.TrackMetadata

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case meta, ok := <-events:
			if !ok {
				e.logger.Info("Monitor events channel closed")
				return
			}
			e.logger.Debug("Track event received, debouncing...",
				zap.String("title", meta.Title),
				zap.String("artist", meta.Artist))

			pendingMeta = &meta
			timer.Reset(debounceDuration)

		case <-timer.C:
			if pendingMeta != nil {
				e.processTrack(ctx, *pendingMeta)
				pendingMeta = nil
			}
		}
	}
}

// processTrack handles one track change end to end. Every failure logs and
// returns, leaving the previous palettes and style variables in place.
func (e *Engine) processTrack(ctx context.Context, meta domain.TrackMetadata) {
	if meta.Status != domain.StatusPlaying {
		e.logger.Info("Playback paused or stopped, keeping current background",
			zap.String("status", string(meta.Status)))
		return
	}

	if meta.TrackID != "" && meta.TrackID == e.currentTrackID {
		e.logger.Debug("Track unchanged, skipping", zap.String("trackID", meta.TrackID))
		return
	}
	e.currentTrackID = meta.TrackID

	coverURL := ResolveCoverURL(meta, e.cfg.GetCoverBaseURL())
	if coverURL == "" {
		e.logger.Warn("No cover reference for track",
			zap.String("track", meta.Title),
			zap.String("artist", meta.Artist))
		return
	}

	e.logger.Info("Updating background",
		zap.String("track", meta.Title),
		zap.String("artist", meta.Artist),
		zap.String("cover", coverURL))

	imgData, err := e.fetcher.Fetch(ctx, coverURL)
	if err != nil {
		e.logger.Error("Failed to fetch cover", zap.Error(err))
		return
	}

	set, err := e.extractor.Extract(ctx, imgData)
	if err != nil {
		e.logger.Error("Failed to extract palettes", zap.Error(err))
		return
	}

	e.pipeline.SetPalettes(set.Coarse, set.Fine)

	accent := palette.Vibrant(set.Fine)
	if palette.Vibrancy(accent) < palette.GrayscaleThreshold {
		// Near-grayscale art: the per-image dominant color reads better
		// than an arbitrary gray cell
		accent = set.Dominant
	}
	e.styles.Apply(accent)

	e.logger.Info("Background updated",
		zap.String("track", meta.Title),
		zap.String("accent", accent.RGB()))
}
