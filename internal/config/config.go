package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"proxy-checker/internal/domain"
)

var validate = validator.New()

const (
	LocalChromeForce   = "force"
	LocalChromeRespect = "respect"
)

type Config struct {
	SettingsPath      string           `json:"settings_path" validate:"required"`
	DatabasePath      string           `json:"database_path" validate:"required"`
	LocalChromePolicy string           `json:"local_chrome_policy" validate:"required,oneof=force respect"`
	Probe             Probe            `json:"probe" validate:"required"`
	Directory         Directory        `json:"directory" validate:"required"`
	Metrics           Metrics          `json:"metrics"`
	Exporters         []ExporterConfig `json:"exporters" validate:"dive"`
}

type Probe struct {
	TimeoutMs     int                  `json:"timeout_ms" validate:"min=100,max=120000"`
	PrimaryTarget int                  `json:"primary_target" validate:"min=0"`
	Targets       []domain.ProbeTarget `json:"targets" validate:"required,min=1,dive"`
}

type Directory struct {
	// BatchConcurrency bounds how many records a batch check probes at once.
	BatchConcurrency int `json:"batch_concurrency" validate:"min=1,max=64"`
	// CheckInterval in seconds between automatic full checks; 0 disables them.
	CheckInterval int `json:"check_interval" validate:"min=0"`
}

type Metrics struct {
	Addr string `json:"addr" validate:"omitempty,hostname_port"`
}

func DefaultProbeTargets() []domain.ProbeTarget {
	return []domain.ProbeTarget{
		{Name: "IP", URL: "https://ipinfo.io/json"},
		{Name: "Google", URL: "https://www.google.com/generate_204"},
		{Name: "GitHub", URL: "https://github.com"},
		{Name: "YouTube", URL: "https://www.youtube.com"},
	}
}

// Default returns the configuration used when no config file exists. Fields
// omitted from a config file keep these values.
func Default(platform Platform) Config {
	dataDir := platform.DataDir()
	return Config{
		SettingsPath:      filepath.Join(dataDir, "setting.json"),
		DatabasePath:      filepath.Join(dataDir, "proxy.db"),
		LocalChromePolicy: LocalChromeForce,
		Probe: Probe{
			TimeoutMs:     5000,
			PrimaryTarget: 0,
			Targets:       DefaultProbeTargets(),
		},
		Directory: Directory{
			BatchConcurrency: 1,
			CheckInterval:    0,
		},
	}
}

// NewConfig loads the configuration file named by CONFIG_PATH. A missing,
// unreadable or malformed file yields the defaults; a file that parses but
// fails validation is an error.
func NewConfig(platform Platform, logger *zap.Logger) (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg := Default(platform)

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("config file not found, using defaults", zap.String("path", configPath))
	case err != nil:
		logger.Error("error reading config, using defaults",
			zap.String("path", configPath),
			zap.Error(err))
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			logger.Error("error parsing config, using defaults",
				zap.String("path", configPath),
				zap.Error(err))
			// Unmarshal may have filled some fields before failing.
			cfg = Default(platform)
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Probe.PrimaryTarget >= len(cfg.Probe.Targets) {
		return fmt.Errorf("primary_target %d out of range for %d targets",
			cfg.Probe.PrimaryTarget, len(cfg.Probe.Targets))
	}

	return nil
}

// formatValidationErrors formats validation errors into a user-friendly error message
func formatValidationErrors(errors validator.ValidationErrors) error {
	var errMsgs []string
	for _, err := range errors {
		errMsgs = append(errMsgs, fmt.Sprintf(
			"field '%s' failed validation: %s",
			err.Namespace(),
			err.Tag(),
		))
	}
	return fmt.Errorf("validation errors: %v", errMsgs)
}
