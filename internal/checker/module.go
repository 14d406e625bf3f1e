package checker

import (
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"proxy-checker/internal/config"
	"proxy-checker/internal/domain"
	"proxy-checker/internal/interfaces"
	"proxy-checker/internal/target"
)

// Module exports the checker module
var Module = fx.Options(
	fx.Provide(NewChecker),
	fx.Provide(func(c *Checker) interfaces.Prober { return c }),
)

// NewChecker creates a Checker from the probe configuration
func NewChecker(
	cfg *config.Config,
	registry *target.Registry,
	metrics domain.MetricsCollector,
	logger *zap.Logger,
) *Checker {
	return New(
		registry,
		time.Duration(cfg.Probe.TimeoutMs)*time.Millisecond,
		metrics,
		logger,
	)
}
