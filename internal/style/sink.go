package style

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/genricoloni/bloom/internal/domain"
	"go.uber.org/zap"
)

const (
	themeFilename = "theme.css"
	glowAlpha     = 0.35
)

// CSSSink applies the accent color to the UI surface: it maintains the three
// custom properties the player consumes and mirrors them into a theme.css
// file in the output dir for desktop tooling.
type CSSSink struct {
	logger *zap.Logger
	cfg    domain.Config

	mu      sync.RWMutex
	accent  domain.Color
	applied bool
}

// NewCSSSink creates a new accent-color sink
func NewCSSSink(logger *zap.Logger, cfg domain.Config) *CSSSink {
	return &CSSSink{logger: logger, cfg: cfg}
}

// Apply updates the exported style variables from the accent color.
// A file write failure is logged; the in-memory stylesheet still updates.
func (s *CSSSink) Apply(accent domain.Color) {
	s.mu.Lock()
	s.accent = accent
	s.applied = true
	sheet := s.stylesheetLocked()
	s.mu.Unlock()

	s.logger.Info("Accent color applied", zap.String("accent", accent.RGB()))

	if err := s.writeTheme(sheet); err != nil {
		s.logger.Error("Failed to write theme file", zap.Error(err))
	}
}

// Stylesheet returns the current `:root` ruleset. Before the first Apply the
// ruleset is empty so the UI keeps its static defaults.
func (s *CSSSink) Stylesheet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stylesheetLocked()
}

func (s *CSSSink) stylesheetLocked() string {
	if !s.applied {
		return ":root {\n}\n"
	}
	return fmt.Sprintf(":root {\n  --bloom-accent: %s;\n  --bloom-glow: %s;\n  --dynamic-bg-vibrant: %s;\n}\n",
		s.accent.RGB(), s.accent.RGBA(glowAlpha), s.accent.RGB())
}

func (s *CSSSink) writeTheme(sheet string) error {
	outputDir := s.cfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outputDir, themeFilename)
	if err := os.WriteFile(path, []byte(sheet), 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}
	return nil
}
