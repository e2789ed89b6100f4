package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	defaultOutputDir     = "/tmp/bloom"
	defaultPaletteMode   = "sample"
	defaultCoverBaseURL  = "http://127.0.0.1:8090/api/cover"
	defaultListenAddr    = ":8090"
	defaultPageTitle     = "bloom"
	defaultPageSlogan    = "music, in color"
	defaultPerformanceLv = "high"
)

// AppConfig holds application configuration
type AppConfig struct {
	logger       *zap.Logger
	outputDir    string
	paletteMode  string
	coverBaseURL string
	performance  string
	listenAddr   string
	pageTitle    string
	pageSlogan   string
}

// NewAppConfig creates a new application configuration instance
func NewAppConfig(logger *zap.Logger) *AppConfig {
	cfg := &AppConfig{
		logger:       logger,
		outputDir:    envOr("BLOOM_OUTPUT_DIR", defaultOutputDir),
		paletteMode:  envOr("BLOOM_PALETTE_MODE", defaultPaletteMode),
		coverBaseURL: envOr("BLOOM_COVER_ENDPOINT", defaultCoverBaseURL),
		performance:  envOr("BLOOM_PERFORMANCE", defaultPerformanceLv),
		listenAddr:   envOr("BLOOM_LISTEN_ADDR", defaultListenAddr),
		pageTitle:    envOr("BLOOM_PAGE_TITLE", defaultPageTitle),
		pageSlogan:   envOr("BLOOM_PAGE_SLOGAN", defaultPageSlogan),
	}

	// Expand path if it contains ~ or environment variables
	cfg.outputDir = os.ExpandEnv(cfg.outputDir)
	if len(cfg.outputDir) > 0 && cfg.outputDir[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.outputDir = filepath.Join(home, cfg.outputDir[1:])
		}
	}

	logger.Info("Configuration loaded",
		zap.String("outputDir", cfg.outputDir),
		zap.String("paletteMode", cfg.paletteMode),
		zap.String("coverEndpoint", cfg.coverBaseURL),
		zap.String("performance", cfg.performance),
		zap.String("listenAddr", cfg.listenAddr))

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetPaletteMode returns the palette extraction mode
func (c *AppConfig) GetPaletteMode() string {
	return c.paletteMode
}

// GetOutputDir returns the directory for exported files
func (c *AppConfig) GetOutputDir() string {
	return c.outputDir
}

// GetCoverBaseURL returns the cover endpoint base URL
func (c *AppConfig) GetCoverBaseURL() string {
	return c.coverBaseURL
}

// GetPerformanceLevel returns the rendering performance hint
func (c *AppConfig) GetPerformanceLevel() string {
	return c.performance
}

// GetListenAddr returns the HTTP listen address
func (c *AppConfig) GetListenAddr() string {
	return c.listenAddr
}

// GetPageTitle returns the front page title
func (c *AppConfig) GetPageTitle() string {
	return c.pageTitle
}

// GetPageSlogan returns the front page slogan
func (c *AppConfig) GetPageSlogan() string {
	return c.pageSlogan
}
