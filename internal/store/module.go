package store

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"proxy-checker/internal/config"
	"proxy-checker/internal/interfaces"
)

var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(func(s *SQLiteStore) interfaces.Store { return s }),
)

// NewStore opens the configured database.
func NewStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*SQLiteStore, error) {
	s, err := Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})

	logger.Info("proxy store opened", zap.String("path", cfg.DatabasePath))
	return s, nil
}
