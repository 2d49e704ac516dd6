// Package settings loads the run configuration. A Settings value is
// built once per run and handed to the fetcher and engine by value —
// there is no ambient mutable configuration.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings is the immutable run configuration.
type Settings struct {
	DownloadDirectory      string        `mapstructure:"download_directory"`
	DownloadTimeout        time.Duration `mapstructure:"-"`
	InstallTimeout         time.Duration `mapstructure:"-"`
	MaxConcurrentDownloads int           `mapstructure:"max_concurrent_downloads"`
	LogLevel               string        `mapstructure:"log_level"`
	AutoScrollLog          bool          `mapstructure:"auto_scroll_log"`
	KeepFailedDownloads    bool          `mapstructure:"keep_failed_downloads"`
}

// Default returns the settings used when no settings file exists.
func Default() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		DownloadDirectory:      filepath.Join(home, "Downloads", "ExilesHUD"),
		DownloadTimeout:        300 * time.Second,
		InstallTimeout:         900 * time.Second,
		MaxConcurrentDownloads: 3,
		LogLevel:               "info",
		AutoScrollLog:          true,
	}
}

// Load reads settings from path. An empty path or a missing file yields
// Default(); a present but invalid file is an error.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("download_timeout", 300)
	v.SetDefault("install_timeout", 900)
	v.SetDefault("max_concurrent_downloads", s.MaxConcurrentDownloads)
	v.SetDefault("log_level", s.LogLevel)
	v.SetDefault("auto_scroll_log", s.AutoScrollLog)
	v.SetDefault("download_directory", s.DownloadDirectory)

	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	s.DownloadTimeout = time.Duration(v.GetInt("download_timeout")) * time.Second
	s.InstallTimeout = time.Duration(v.GetInt("install_timeout")) * time.Second

	return s, s.validate()
}

func (s Settings) validate() error {
	if s.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("max_concurrent_downloads must be at least 1")
	}
	if s.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout must be positive")
	}
	if s.InstallTimeout <= 0 {
		return fmt.Errorf("install_timeout must be positive")
	}
	switch s.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
	return nil
}
