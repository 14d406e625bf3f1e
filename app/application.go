package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"proxy-checker/internal/checker"
	"proxy-checker/internal/common"
	"proxy-checker/internal/config"
	"proxy-checker/internal/directory"
	"proxy-checker/internal/exporter"
	"proxy-checker/internal/metrics"
	"proxy-checker/internal/store"
	"proxy-checker/internal/target"
	"proxy-checker/internal/worker"
)

type Application struct {
	app       *fx.App
	logger    *zap.Logger
	directory *directory.Controller
	exporter  *exporter.Manager
}

func NewApplication(opts ...common.Option) *Application {
	options := buildOptions(opts)

	app := &Application{
		logger: options.Logger,
	}

	// Build fx application
	app.app = fx.New(
		modules(options),

		// Configure fx
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		// Set timeouts
		fx.StopTimeout(30*time.Second),
		fx.StartTimeout(30*time.Second),

		fx.Populate(&app.directory, &app.exporter),
	)

	return app
}

func buildOptions(opts []common.Option) *common.ServiceOptions {
	options := &common.ServiceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Ensure required options are set
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}

// modules assembles every component plus the overrides requested in options.
func modules(options *common.ServiceOptions) fx.Option {
	overrides := []fx.Option{
		fx.Provide(
			func() *zap.Logger { return options.Logger },
			func() string { return options.Env },
		),
	}
	if options.Config != nil {
		overrides = append(overrides, fx.Replace(options.Config))
	}
	if options.Platform != nil {
		overrides = append(overrides, fx.Replace(*options.Platform))
	}
	if options.Registry != nil {
		overrides = append(overrides, fx.Decorate(func(prometheus.Registerer) prometheus.Registerer {
			return options.Registry
		}))
	}

	return fx.Options(
		// Lifecycle hooks first so the directory is loaded before the
		// scheduler's first run
		fx.Invoke(registerHooks),

		// Core modules
		config.Module,
		target.Module,
		metrics.Module,
		store.Module,
		checker.Module,
		directory.Module,
		worker.Module,
		exporter.Module,

		fx.Options(overrides...),
	)
}

func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

func (a *Application) Directory() *directory.Controller {
	return a.directory
}

// Export writes the current directory to every configured exporter.
func (a *Application) Export(ctx context.Context) error {
	return a.directory.Export(ctx, a.exporter)
}
