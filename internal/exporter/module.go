package exporter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"proxy-checker/internal/config"
	"proxy-checker/internal/domain"
	"proxy-checker/internal/exporter/webhook"
	"proxy-checker/internal/interfaces"
)

// Module exports the exporter module
var Module = fx.Options(
	fx.Provide(NewManager),
	fx.Provide(func(m *Manager) interfaces.ExportSink { return m }),
)

type namedSink struct {
	name string
	sink interfaces.ExportSink
}

// Manager fans directory rows out to every configured sink.
type Manager struct {
	sinks  []namedSink
	logger *zap.Logger
}

func NewManager(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	manager := &Manager{
		logger: logger.With(zap.String("component", "exporter")),
	}

	for i := range cfg.Exporters {
		expCfg := cfg.Exporters[i]
		sink, err := createSink(&expCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter %s: %w", expCfg.Type, err)
		}
		manager.sinks = append(manager.sinks, namedSink{name: expCfg.Type, sink: sink})
	}

	return manager, nil
}

func (m *Manager) Len() int {
	return len(m.sinks)
}

// Export writes rows to every sink. A failing sink does not stop the others;
// all failures are returned joined.
func (m *Manager) Export(ctx context.Context, rows []domain.ExportRow) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.sink.Export(ctx, rows); err != nil {
			m.logger.Error("failed to export directory",
				zap.String("exporter", s.name),
				zap.Int("rows", len(rows)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		m.logger.Debug("directory exported",
			zap.String("exporter", s.name),
			zap.Int("rows", len(rows)))
	}
	return errors.Join(errs...)
}

func createSink(cfg *config.ExporterConfig) (interfaces.ExportSink, error) {
	switch cfg.Type {
	case config.ExporterTypeCSV:
		return NewCSVSink(cfg.Path), nil
	case config.ExporterTypeJSON:
		return NewJSONSink(cfg.Path), nil
	case config.ExporterTypeWebhook:
		return webhook.New(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.Type)
	}
}
