package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"proxy-checker/internal/domain"
)

// Job checks a single record.
type Job func(ctx context.Context, id domain.RecordID) error

type outcome struct {
	id      domain.RecordID
	err     error
	skipped bool
}

type worker struct {
	id      int
	jobs    <-chan domain.RecordID
	results chan<- outcome
	job     Job
	logger  *zap.Logger
}

func newWorker(id int, jobs <-chan domain.RecordID, results chan<- outcome, job Job, logger *zap.Logger) *worker {
	return &worker{
		id:      id,
		jobs:    jobs,
		results: results,
		job:     job,
		logger:  logger.With(zap.Int("worker_id", id)),
	}
}

// start drains jobs until the channel is closed. Records received after the
// batch context is cancelled are reported as skipped instead of being run.
func (w *worker) start(ctx context.Context) {
	w.logger.Debug("worker started")
	defer w.logger.Debug("worker stopped")

	for id := range w.jobs {
		if ctx.Err() != nil {
			w.results <- outcome{id: id, skipped: true}
			continue
		}
		w.results <- outcome{id: id, err: w.process(ctx, id)}
	}
}

func (w *worker) process(ctx context.Context, id domain.RecordID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panic recovered",
				zap.Int64("proxy_id", int64(id)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = NewCheckError("panic", id, fmt.Errorf("%v", r))
		}
	}()

	if err := w.job(ctx, id); err != nil {
		w.logger.Debug("check failed",
			zap.Int64("proxy_id", int64(id)),
			zap.Error(err))
		return NewCheckError("check", id, err)
	}
	return nil
}
