package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"proxy-checker/internal/config"
	"proxy-checker/internal/interfaces"
)

var Module = fx.Options(
	fx.Provide(NewPool),
	fx.Provide(func(cfg *config.Config, checker interfaces.BatchChecker, logger *zap.Logger) interfaces.Scheduler {
		return NewScheduler(
			time.Duration(cfg.Directory.CheckInterval)*time.Second,
			checker,
			logger,
		)
	}),
	fx.Invoke(registerHooks),
)

// registerHooks runs the scheduler for the lifetime of the application when a
// check interval is configured.
func registerHooks(lc fx.Lifecycle, cfg *config.Config, scheduler interfaces.Scheduler, logger *zap.Logger) {
	if cfg.Directory.CheckInterval <= 0 {
		logger.Debug("periodic checks disabled")
		return
	}

	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, c := context.WithCancel(context.Background())
			cancel = c
			wg.Add(1)
			go func() {
				defer wg.Done()
				scheduler.Start(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = scheduler.Stop()
			if cancel != nil {
				cancel()
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
