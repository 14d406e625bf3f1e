package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"proxy-checker/internal/config"
	"proxy-checker/internal/domain"
)

// Pool runs batch checks with a bounded number of concurrent workers.
type Pool struct {
	size   int
	logger *zap.Logger
}

// Result is the per-record outcome of one Pool.Run.
type Result struct {
	Checked   []domain.RecordID
	Failed    []domain.RecordError
	Skipped   []domain.RecordID
	Cancelled bool
}

func NewPool(cfg *config.Config, logger *zap.Logger) *Pool {
	return New(cfg.Directory.BatchConcurrency, logger)
}

// New returns a pool of the given width. Widths below one are raised to one.
func New(size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:   size,
		logger: logger.With(zap.String("component", "pool")),
	}
}

func (p *Pool) Size() int {
	return p.size
}

// Run feeds ids to the workers in order and waits for every fed record to
// finish. Cancellation is cooperative: a record that has started runs to
// completion, records not yet started are skipped.
func (p *Pool) Run(ctx context.Context, ids []domain.RecordID, job Job) Result {
	var result Result
	if len(ids) == 0 {
		return result
	}

	workerCount := p.size
	if workerCount > len(ids) {
		workerCount = len(ids)
	}

	jobs := make(chan domain.RecordID)
	results := make(chan outcome, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		w := newWorker(i, jobs, results, job, p.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.start(ctx)
		}()
	}

	p.logger.Debug("batch started",
		zap.Int("worker_count", workerCount),
		zap.Int("records", len(ids)))

	fed := 0
feed:
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- id:
			fed++
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for o := range results {
		switch {
		case o.skipped:
			result.Skipped = append(result.Skipped, o.id)
		case o.err != nil:
			result.Failed = append(result.Failed, domain.RecordError{ID: o.id, Err: o.err})
		default:
			result.Checked = append(result.Checked, o.id)
		}
	}
	result.Skipped = append(result.Skipped, ids[fed:]...)
	result.Cancelled = len(result.Skipped) > 0

	if result.Cancelled {
		p.logger.Info("batch cancelled",
			zap.Int("checked", len(result.Checked)),
			zap.Int("skipped", len(result.Skipped)),
			zap.Error(ctx.Err()))
	}
	return result
}
