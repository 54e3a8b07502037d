// Package config holds the pdfdiff configuration: defaults, the optional
// YAML file and validation. CLI flags are applied on top by the caller.
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pdfdiff"

	// DefaultDPI renders one pixel per PDF point, the resolution the
	// difference highlight was tuned for.
	DefaultDPI = 72

	// DefaultWorkers rasterizes pages one at a time.
	DefaultWorkers = 1

	// DefaultThreshold counts any channel difference as a difference.
	DefaultThreshold = 0

	// DefaultDilateRadius grows each differing pixel before the contour is drawn.
	DefaultDilateRadius = 2

	// DefaultEdgeWidth is the width of the contour filter.
	DefaultEdgeWidth = 2

	// DefaultFontSize is the placeholder label size in points.
	DefaultFontSize = 40

	// DefaultLogLevel only shows warnings and errors.
	DefaultLogLevel = "warn"

	// DefaultLogFormat is colorized console output.
	DefaultLogFormat = "console"
)

// Config holds every setting of a pdfdiff run.
type Config struct {
	Raster    RasterConfig    `yaml:"raster"`
	Compare   CompareConfig   `yaml:"compare"`
	Highlight HighlightConfig `yaml:"highlight"`
	Log       LogConfig       `yaml:"log"`
	History   HistoryConfig   `yaml:"history"`
	TmpWatch  TmpWatchConfig  `yaml:"tmpwatch"`
}

// RasterConfig controls page rendering.
type RasterConfig struct {
	// DPI is the rendering resolution. Both documents use the same value.
	DPI float64 `yaml:"dpi"`
	// Workers is the number of pages rendered concurrently per document.
	Workers int `yaml:"workers"`
}

// CompareConfig controls pixel comparison.
type CompareConfig struct {
	// Threshold is the largest per-channel difference still counted as equal.
	Threshold int `yaml:"threshold"`
}

// HighlightConfig controls how differences are drawn.
type HighlightConfig struct {
	DilateRadius int     `yaml:"dilate_radius"`
	EdgeWidth    int     `yaml:"edge_width"`
	FontSize     float64 `yaml:"font_size"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables an additional JSON log file, rotated by size.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Enabled records every run, as if --record were given.
	Enabled bool `yaml:"enabled"`
	// Dir holds history.db. Empty means the XDG data directory.
	Dir string `yaml:"dir"`
}

// TmpWatchConfig controls the temporary file leak detector.
type TmpWatchConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir is the directory watched. Empty means os.TempDir().
	Dir string `yaml:"dir"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Raster: RasterConfig{
			DPI:     DefaultDPI,
			Workers: DefaultWorkers,
		},
		Compare: CompareConfig{Threshold: DefaultThreshold},
		Highlight: HighlightConfig{
			DilateRadius: DefaultDilateRadius,
			EdgeWidth:    DefaultEdgeWidth,
			FontSize:     DefaultFontSize,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		TmpWatch: TmpWatchConfig{Enabled: true},
	}
}

// XDGDataDir returns the XDG data directory for pdfdiff.
// On Linux: ~/.local/share/pdfdiff
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pdfdiff.
// On Linux: ~/.config/pdfdiff
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HistoryDir returns the directory of the history database.
func (c *Config) HistoryDir() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	return XDGDataDir()
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Raster.DPI <= 0 {
		return ErrInvalidDPI
	}
	if c.Raster.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Compare.Threshold < 0 || c.Compare.Threshold > 255 {
		return ErrInvalidThreshold
	}
	if c.Highlight.DilateRadius <= 0 || c.Highlight.EdgeWidth <= 0 || c.Highlight.FontSize <= 0 {
		return ErrInvalidHighlight
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}
