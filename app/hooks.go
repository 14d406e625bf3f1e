package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"proxy-checker/internal/config"
	"proxy-checker/internal/directory"
)

type hookParams struct {
	fx.In

	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Directory *directory.Controller
}

func registerHooks(p hookParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting application",
				zap.String("database", p.Config.DatabasePath),
				zap.Int("probe_targets", len(p.Config.Probe.Targets)))

			if err := p.Directory.Reload(ctx); err != nil {
				return fmt.Errorf("initial directory load: %w", err)
			}
			p.Logger.Info("proxy directory loaded", zap.Int("records", len(p.Directory.Records())))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("stopping application")
			return nil
		},
	})
}
