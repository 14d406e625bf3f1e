package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"proxy-checker/internal/interfaces"
)

type defaultScheduler struct {
	interval time.Duration
	checker  interfaces.BatchChecker
	logger   *zap.Logger
	mu       sync.RWMutex
	stopping bool
}

func NewScheduler(
	interval time.Duration,
	checker interfaces.BatchChecker,
	logger *zap.Logger,
) interfaces.Scheduler {
	return &defaultScheduler{
		interval: interval,
		checker:  checker,
		logger:   logger.With(zap.String("component", "scheduler")),
	}
}

// Start checks the directory immediately and then once per interval until
// ctx is done or Stop is called.
func (s *defaultScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runBatch(ctx)

	for {
		select {
		case <-ticker.C:
			if !s.IsHealthy() {
				s.logger.Debug("scheduler stopping, tick ignored")
				return
			}
			s.runBatch(ctx)
		case <-ctx.Done():
			s.logger.Debug("scheduler stopped", zap.Error(ctx.Err()))
			return
		}
	}
}

func (s *defaultScheduler) runBatch(ctx context.Context) {
	report, err := s.checker.CheckAll(ctx)
	if err != nil {
		s.logger.Error("scheduled check failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled check finished",
		zap.String("batch_id", report.BatchID),
		zap.Int("checked", len(report.Checked)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Duration("duration", report.Duration))
}

func (s *defaultScheduler) Stop() error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	return nil
}

func (s *defaultScheduler) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.stopping
}
