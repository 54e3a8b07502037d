package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	assert.Equal(t, 72.0, cfg.Raster.DPI)
	assert.Equal(t, 1, cfg.Raster.Workers)
	assert.Equal(t, 0, cfg.Compare.Threshold)
	assert.Equal(t, 2, cfg.Highlight.DilateRadius)
	assert.Equal(t, 2, cfg.Highlight.EdgeWidth)
	assert.Equal(t, 40.0, cfg.Highlight.FontSize)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.TmpWatch.Enabled)
	assert.False(t, cfg.History.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"zero dpi", func(c *Config) { c.Raster.DPI = 0 }, ErrInvalidDPI},
		{"negative workers", func(c *Config) { c.Raster.Workers = -1 }, ErrInvalidWorkers},
		{"threshold too large", func(c *Config) { c.Compare.Threshold = 256 }, ErrInvalidThreshold},
		{"negative threshold", func(c *Config) { c.Compare.Threshold = -1 }, ErrInvalidThreshold},
		{"negative dilate radius", func(c *Config) { c.Highlight.DilateRadius = -2 }, ErrInvalidHighlight},
		{"zero font size", func(c *Config) { c.Highlight.FontSize = 0 }, ErrInvalidHighlight},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"max threshold is valid", func(c *Config) { c.Compare.Threshold = 255 }, nil},
		{"zero edge width", func(c *Config) { c.Highlight.EdgeWidth = 0 }, ErrInvalidHighlight},
		{"one dpi is valid", func(c *Config) { c.Raster.DPI = 1 }, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("values override defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "raster:\n  dpi: 150\ncompare:\n  threshold: 4\nlog:\n  level: debug\n  file: /tmp/pdfdiff.log\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 150.0, cfg.Raster.DPI)
		assert.Equal(t, 1, cfg.Raster.Workers, "missing keys keep defaults")
		assert.Equal(t, 4, cfg.Compare.Threshold)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)
		assert.Equal(t, "/tmp/pdfdiff.log", cfg.Log.File)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("raster: [dpi"), 0o600))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		assert.Equal(t, path, FindConfigFile(path))
		assert.Empty(t, FindConfigFile(path+".missing"))
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		require.NoError(t, os.WriteFile(DefaultConfigFile, []byte("{}"), 0o600))
		assert.Equal(t, filepath.Join(dir, DefaultConfigFile), FindConfigFile(""))
	})
}

func TestLoad(t *testing.T) {
	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("no file yields defaults", func(t *testing.T) {
		chdir(t, t.TempDir())
		if FindConfigFile("") != "" {
			t.Skip("a user config file exists")
		}
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, NewConfig(), cfg)
	})
}

func TestHistoryDir(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()
	assert.Equal(t, XDGDataDir(), cfg.HistoryDir())
	cfg.History.Dir = "/var/lib/pdfdiff"
	assert.Equal(t, "/var/lib/pdfdiff", cfg.HistoryDir())
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(old)) })
}
