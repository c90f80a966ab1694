package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Backend      BackendConfig      `mapstructure:"backend"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Stage        StageConfig        `mapstructure:"stage"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// BackendConfig holds the remote record backend configuration
type BackendConfig struct {
	URL    string `mapstructure:"url"`     // Project URL, e.g. https://xyz.supabase.co
	APIKey string `mapstructure:"api_key"` // Anon or service key
}

// CacheConfig holds offline cache configuration
type CacheConfig struct {
	Dir      string `mapstructure:"dir"`
	Disabled bool   `mapstructure:"disabled"` // Memory-only, nothing survives a restart
}

// ConnectivityConfig holds reachability probing configuration
type ConnectivityConfig struct {
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	ForceOffline  bool          `mapstructure:"force_offline"` // Never touch the network
}

// StageConfig holds the initial stage mode display settings
type StageConfig struct {
	FontSize    string  `mapstructure:"font_size"` // small, medium, large, xlarge
	DarkMode    bool    `mapstructure:"dark_mode"`
	ShowChords  bool    `mapstructure:"show_chords"`
	ShowLyrics  bool    `mapstructure:"show_lyrics"`
	ScrollSpeed float64 `mapstructure:"scroll_speed"`
}

// SyncConfig holds offline refresh configuration
type SyncConfig struct {
	Schedule    string `mapstructure:"schedule"`    // cron spec for `encore sync`
	Concurrency int    `mapstructure:"concurrency"` // parallel song downloads
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval: 15 * time.Second,
		},
		Stage: StageConfig{
			FontSize:    "large",
			DarkMode:    true,
			ShowChords:  true,
			ShowLyrics:  true,
			ScrollSpeed: 1,
		},
		Sync: SyncConfig{
			Schedule:    "@every 30m",
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "encore", "encore.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "encore", "encore.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "encore")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "encore")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "encore", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "encore", "cache")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return loadConfig(viper.GetViper(), defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration from an explicit file
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return readConfig(v)
}

func loadConfig(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	return readConfig(v)
}

func readConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	// Environment variable overrides (ENCORE_BACKEND_URL, ENCORE_CONNECTIVITY_FORCE_OFFLINE, ...)
	v.SetEnvPrefix("ENCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend.url", cfg.Backend.URL)
	v.SetDefault("backend.api_key", cfg.Backend.APIKey)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.disabled", cfg.Cache.Disabled)
	v.SetDefault("connectivity.probe_interval", cfg.Connectivity.ProbeInterval)
	v.SetDefault("connectivity.force_offline", cfg.Connectivity.ForceOffline)
	v.SetDefault("stage.font_size", cfg.Stage.FontSize)
	v.SetDefault("stage.dark_mode", cfg.Stage.DarkMode)
	v.SetDefault("stage.show_chords", cfg.Stage.ShowChords)
	v.SetDefault("stage.show_lyrics", cfg.Stage.ShowLyrics)
	v.SetDefault("stage.scroll_speed", cfg.Stage.ScrollSpeed)
	v.SetDefault("sync.schedule", cfg.Sync.Schedule)
	v.SetDefault("sync.concurrency", cfg.Sync.Concurrency)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// SaveConfig saves the backend credentials to the default config file
func SaveConfig(cfg *Config) error {
	return saveConfig(viper.GetViper(), defaultConfigPath(), cfg)
}

func saveConfig(v *viper.Viper, configPath string, cfg *Config) error {
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v.Set("backend.url", cfg.Backend.URL)
	v.Set("backend.api_key", cfg.Backend.APIKey)

	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("cache.disabled", cfg.Cache.Disabled)

	v.Set("connectivity.probe_interval", cfg.Connectivity.ProbeInterval.String())
	v.Set("connectivity.force_offline", cfg.Connectivity.ForceOffline)

	v.Set("stage.font_size", cfg.Stage.FontSize)
	v.Set("stage.dark_mode", cfg.Stage.DarkMode)
	v.Set("stage.show_chords", cfg.Stage.ShowChords)
	v.Set("stage.show_lyrics", cfg.Stage.ShowLyrics)
	v.Set("stage.scroll_speed", cfg.Stage.ScrollSpeed)

	v.Set("sync.schedule", cfg.Sync.Schedule)
	v.Set("sync.concurrency", cfg.Sync.Concurrency)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the backend URL and key are set
func (c *Config) IsConfigured() bool {
	return c.Backend.URL != "" && c.Backend.APIKey != ""
}

// CacheDir returns the cache directory, or "" when the cache is memory-only
func (c *Config) CacheDir() string {
	if c.Cache.Disabled {
		return ""
	}
	return c.Cache.Dir
}

// ClearCache removes all cached data
func ClearCache(cfg *Config) error {
	dir := cfg.Cache.Dir
	if dir == "" {
		dir = defaultCachePath()
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCachePath returns the default cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
