package config

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(DetectPlatform),
	fx.Provide(NewConfig),
	fx.Provide(NewSettings),
	// Run the settings bootstrap at startup even when no component reads it.
	fx.Invoke(func(Settings) {}),
)

// NewSettings is the one-time settings bootstrap: load, persist defaults on
// first run, create directories. Only the load result matters to callers;
// filesystem failures are logged.
func NewSettings(cfg *Config, platform Platform, logger *zap.Logger) Settings {
	settings := LoadSettings(cfg.SettingsPath, platform, cfg.LocalChromePolicy, logger)

	if err := EnsureSettingsFile(cfg.SettingsPath, settings); err != nil {
		logger.Warn("failed to persist default settings", zap.Error(err))
	}
	if err := EnsureDirectories(settings, cfg); err != nil {
		logger.Warn("failed to create directories", zap.Error(err))
	}

	logger.Info("settings resolved",
		zap.String("profile_cache_path", settings.ProfileCachePath),
		zap.Bool("use_local_chrome", settings.UseLocalChrome),
		zap.String("local_chrome_path", settings.LocalChromePath))

	return settings
}
