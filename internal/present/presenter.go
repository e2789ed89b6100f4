package present

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/genricoloni/bloom/internal/domain"
	"go.uber.org/zap"
)

const (
	frameFilename = "current_background.jpg"

	// Export every Nth presented frame to disk; the in-memory frame is
	// always the latest one.
	exportEvery = 30
)

// FrameBuffer holds the latest encoded frame for the HTTP surface and
// periodically exports it to the output dir.
type FrameBuffer struct {
	logger *zap.Logger
	cfg    domain.Config

	mu    sync.RWMutex
	frame []byte
	seq   uint64
}

// NewFrameBuffer creates a new frame presenter
func NewFrameBuffer(logger *zap.Logger, cfg domain.Config) *FrameBuffer {
	return &FrameBuffer{logger: logger, cfg: cfg}
}

// Present publishes a freshly encoded JPEG frame
func (b *FrameBuffer) Present(frame []byte) {
	b.mu.Lock()
	b.frame = frame
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	if seq%exportEvery == 1 {
		if err := b.export(frame); err != nil {
			b.logger.Error("Failed to export frame", zap.Error(err))
		}
	}
}

// Latest returns the most recent frame and its sequence number. The frame is
// nil before the pipeline has presented anything.
func (b *FrameBuffer) Latest() ([]byte, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frame, b.seq
}

func (b *FrameBuffer) export(frame []byte) error {
	outputDir := b.cfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outputDir, frameFilename)
	if err := os.WriteFile(path, frame, 0644); err != nil {
		return fmt.Errorf("failed to write frame file: %w", err)
	}
	return nil
}
