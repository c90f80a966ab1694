package adapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  url: https://band.supabase.co
  api_key: anon
connectivity:
  probe_interval: 5s
stage:
  font_size: medium
  dark_mode: false
`), 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	require.True(t, cfg.IsConfigured())
	require.Equal(t, "https://band.supabase.co", cfg.Backend.URL)
	require.Equal(t, 5*time.Second, cfg.Connectivity.ProbeInterval)
	require.Equal(t, "medium", cfg.Stage.FontSize)
	require.False(t, cfg.Stage.DarkMode)

	// Untouched keys keep their defaults
	require.True(t, cfg.Stage.ShowChords)
	require.Equal(t, 4, cfg.Sync.Concurrency)
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := loadConfig(viper.New(), t.TempDir())
	require.NoError(t, err)

	require.False(t, cfg.IsConfigured())
	require.Equal(t, "large", cfg.Stage.FontSize)
	require.True(t, cfg.Stage.DarkMode)
	require.Equal(t, 1.0, cfg.Stage.ScrollSpeed)
	require.NotEmpty(t, cfg.CacheDir())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ENCORE_CONNECTIVITY_FORCE_OFFLINE", "true")
	t.Setenv("ENCORE_BACKEND_URL", "https://env.example.com")

	cfg, err := loadConfig(viper.New(), t.TempDir())
	require.NoError(t, err)

	require.True(t, cfg.Connectivity.ForceOffline)
	require.Equal(t, "https://env.example.com", cfg.Backend.URL)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Backend.URL = "https://band.supabase.co"
	cfg.Backend.APIKey = "secret"
	cfg.Cache.Disabled = true
	require.NoError(t, saveConfig(viper.New(), dir, cfg))

	loaded, err := LoadConfigFrom(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "secret", loaded.Backend.APIKey)
	require.Empty(t, loaded.CacheDir())
	require.Equal(t, cfg.Connectivity.ProbeInterval, loaded.Connectivity.ProbeInterval)
}

func TestNewJSONLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "setlistID", "set-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "encore", line["app"])
	require.Equal(t, "set-1", line["setlistID"])
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("nonsense"))
}

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "encore.log")

	logger, closer, err := SetupLogger(&LoggingConfig{File: path, Level: "INFO"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
}
