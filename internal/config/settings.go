package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Settings is the browser-side configuration shared with the rest of the
// desktop tool. It is resolved once at startup and then treated as read-only.
type Settings struct {
	ProfileCachePath  string `json:"profileCachePath"`
	UseLocalChrome    bool   `json:"useLocalChrome"`
	LocalChromePath   string `json:"localChromePath"`
	ChromiumBinPath   string `json:"chromiumBinPath"`
	AutomationConnect bool   `json:"automationConnect"`
	BrowserName       string `json:"browserName"`
}

func DefaultSettings(platform Platform) Settings {
	return Settings{
		ProfileCachePath:  platform.DefaultCachePath(),
		UseLocalChrome:    true,
		LocalChromePath:   "",
		ChromiumBinPath:   "",
		AutomationConnect: false,
		BrowserName:       "Google Chrome",
	}
}

// LoadSettings reads the settings file at path. It never fails: a missing,
// unreadable or malformed file falls back to the defaults.
func LoadSettings(path string, platform Platform, localChromePolicy string, logger *zap.Logger) Settings {
	settings := DefaultSettings(platform)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("settings file not found, using defaults", zap.String("path", path))
	case err != nil:
		logger.Warn("failed to read settings file, using defaults",
			zap.String("path", path), zap.Error(err))
	default:
		loaded := DefaultSettings(platform)
		if err := json.Unmarshal(data, &loaded); err != nil {
			logger.Warn("failed to parse settings file, using defaults",
				zap.String("path", path), zap.Error(err))
		} else {
			settings = loaded
		}
	}

	if settings.ProfileCachePath == "" {
		settings.ProfileCachePath = platform.DefaultCachePath()
	}
	if settings.LocalChromePath == "" {
		settings.LocalChromePath = platform.DefaultChromePath()
	}
	if localChromePolicy == LocalChromeForce {
		settings.UseLocalChrome = true
	}
	if settings.ChromiumBinPath == "" || settings.ChromiumBinPath == legacyBinRel {
		settings.ChromiumBinPath = platform.DefaultChromiumBinPath()
	}

	return settings
}

// EnsureSettingsFile writes settings to path unless a file already exists.
func EnsureSettingsFile(path string, settings Settings) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat settings file %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}
	return nil
}

// EnsureDirectories creates required directories if they don't exist
func EnsureDirectories(settings Settings, cfg *Config) error {
	dirs := []struct {
		path string
		name string
	}{
		{settings.ProfileCachePath, "profile cache"},
		{filepath.Dir(cfg.DatabasePath), "database"},
	}

	for _, dir := range dirs {
		if dir.path == "" || dir.path == "." {
			continue
		}
		if err := os.MkdirAll(dir.path, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory at %s: %w",
				dir.name, dir.path, err)
		}
	}

	return nil
}
