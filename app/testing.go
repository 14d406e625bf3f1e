package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"proxy-checker/internal/common"
	"proxy-checker/internal/directory"
	"proxy-checker/internal/exporter"
)

// TestApplication runs the full module graph under fxtest
type TestApplication struct {
	tb        testing.TB
	testApp   *fxtest.App
	options   []fx.Option
	service   *common.ServiceOptions
	directory *directory.Controller
	exporter  *exporter.Manager
}

func NewTestApplication(tb testing.TB, opts ...common.Option) *TestApplication {
	return &TestApplication{
		tb:      tb,
		service: buildOptions(opts),
	}
}

func (ta *TestApplication) WithOption(opt fx.Option) *TestApplication {
	ta.options = append(ta.options, opt)
	return ta
}

func (ta *TestApplication) Start(ctx context.Context) error {
	testOptions := []fx.Option{
		modules(ta.service),
		fx.NopLogger,
		fx.StartTimeout(10 * time.Second),
		fx.StopTimeout(10 * time.Second),
		fx.Populate(&ta.directory, &ta.exporter),
	}
	testOptions = append(testOptions, ta.options...)

	// Create test app
	ta.testApp = fxtest.New(
		ta.tb,
		testOptions...,
	)

	return ta.testApp.Start(ctx)
}

func (ta *TestApplication) Stop(ctx context.Context) error {
	if ta.testApp != nil {
		return ta.testApp.Stop(ctx)
	}
	return nil
}

func (ta *TestApplication) Directory() *directory.Controller {
	return ta.directory
}

func (ta *TestApplication) Export(ctx context.Context) error {
	return ta.directory.Export(ctx, ta.exporter)
}
