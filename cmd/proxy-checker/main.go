package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"proxy-checker/app"
	"proxy-checker/internal/common"
)

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	checkOnce := flag.Bool("check", false, "check every proxy once and exit")
	exportOnce := flag.Bool("export", false, "export the directory to the configured exporters and exit")
	flag.Parse()

	env := os.Getenv("APP_ENV")
	logger, err := newLogger(env)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	application := app.NewApplication(
		common.WithLogger(logger),
		common.WithEnv(env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}

	if *checkOnce || *exportOnce {
		runOnce(ctx, application, *checkOnce, *exportOnce, logger)
	} else {
		// Wait for shutdown signal
		<-ctx.Done()
		logger.Info("received shutdown signal")
	}

	// Stop with timeout
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Stop(stopCtx); err != nil {
		logger.Fatal("failed to stop application gracefully", zap.Error(err))
	}
}

func runOnce(ctx context.Context, application *app.Application, check, export bool, logger *zap.Logger) {
	if check {
		report, err := application.Directory().CheckAll(ctx)
		if err != nil {
			logger.Error("check failed", zap.Error(err))
		}
		logger.Info("check finished",
			zap.String("batch_id", report.BatchID),
			zap.Int("checked", len(report.Checked)),
			zap.Int("failed", len(report.Failed)),
			zap.Int("skipped", len(report.Skipped)))
	}
	if export {
		if err := application.Export(ctx); err != nil {
			logger.Error("export failed", zap.Error(err))
		}
	}
}
