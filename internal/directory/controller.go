// Package directory keeps the in-memory view of the proxy directory and
// coordinates connectivity checks against it.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"proxy-checker/internal/domain"
	"proxy-checker/internal/endpoint"
	"proxy-checker/internal/interfaces"
	"proxy-checker/internal/status"
	"proxy-checker/internal/target"
	"proxy-checker/internal/worker"
)

type flightKind int

const (
	flightCheck flightKind = iota
	flightWrite
)

// flight is an operation in progress on one record. done is closed when it
// finishes; result and err are only read after that.
type flight struct {
	kind   flightKind
	done   chan struct{}
	result domain.ConnectivityResult
	err    error
}

func newFlight(kind flightKind) *flight {
	return &flight{kind: kind, done: make(chan struct{})}
}

func (f *flight) wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// snapshot is never modified after it is published.
type snapshot struct {
	order   []domain.RecordID
	records map[domain.RecordID]domain.ProxyRecord
}

func (s *snapshot) with(rec domain.ProxyRecord) *snapshot {
	records := make(map[domain.RecordID]domain.ProxyRecord, len(s.records))
	for id, r := range s.records {
		records[id] = r
	}
	records[rec.ID] = rec
	return &snapshot{order: s.order, records: records}
}

func (s *snapshot) list() []domain.ProxyRecord {
	out := make([]domain.ProxyRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

type Controller struct {
	store    interfaces.Store
	prober   interfaces.Prober
	registry *target.Registry
	pool     *worker.Pool
	metrics  domain.MetricsCollector
	logger   *zap.Logger

	// writeMu orders store writes against reloads, so a reload never
	// publishes rows read before a write that has already reached the cache.
	writeMu sync.Mutex

	mu      sync.RWMutex
	snap    *snapshot
	flights map[domain.RecordID]*flight
}

func NewController(
	store interfaces.Store,
	prober interfaces.Prober,
	registry *target.Registry,
	pool *worker.Pool,
	metrics domain.MetricsCollector,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		store:    store,
		prober:   prober,
		registry: registry,
		pool:     pool,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "directory")),
		snap:     &snapshot{records: map[domain.RecordID]domain.ProxyRecord{}},
		flights:  make(map[domain.RecordID]*flight),
	}
}

// Reload replaces the cached directory with the store contents. Records whose
// check is still running keep their checking flag.
func (c *Controller) Reload(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.reloadLocked(ctx)
}

// reloadLocked requires writeMu.
func (c *Controller) reloadLocked(ctx context.Context) error {
	records, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load proxy records: %w", err)
	}

	next := &snapshot{
		order:   make([]domain.RecordID, 0, len(records)),
		records: make(map[domain.RecordID]domain.ProxyRecord, len(records)),
	}

	c.mu.Lock()
	for _, rec := range records {
		f, ok := c.flights[rec.ID]
		rec.Checking = ok && f.kind == flightCheck
		next.order = append(next.order, rec.ID)
		next.records[rec.ID] = rec
	}
	c.snap = next
	c.mu.Unlock()

	c.metrics.SetDirectorySize(len(records))
	c.logger.Debug("directory reloaded", zap.Int("records", len(records)))
	return nil
}

// Records returns the cached directory in store order.
func (c *Controller) Records() []domain.ProxyRecord {
	return c.current().list()
}

func (c *Controller) Get(id domain.RecordID) (domain.ProxyRecord, error) {
	rec, ok := c.current().records[id]
	if !ok {
		return domain.ProxyRecord{}, fmt.Errorf("proxy %d: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// Statuses returns the display status of every probe target for a record.
func (c *Controller) Statuses(id domain.RecordID) ([]status.Status, error) {
	rec, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return status.All(rec, c.registry.Len()), nil
}

// Search filters the cached directory by a case-insensitive substring of the
// country, endpoint, ip or proxy type. A blank keyword reloads from the store
// and returns everything.
func (c *Controller) Search(ctx context.Context, keyword string) ([]domain.ProxyRecord, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		if err := c.Reload(ctx); err != nil {
			return nil, err
		}
		return c.Records(), nil
	}

	var out []domain.ProxyRecord
	for _, rec := range c.current().list() {
		if matches(rec, keyword) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func matches(rec domain.ProxyRecord, keyword string) bool {
	for _, field := range []string{rec.IPCountry, rec.Endpoint, rec.IP, string(rec.ProxyType)} {
		if strings.Contains(strings.ToLower(field), keyword) {
			return true
		}
	}
	return false
}

// CheckOne probes a record and stores the outcome. A second call for a record
// that is already being checked waits for and returns the first result. A
// malformed endpoint still stores the credential-parse result and is reported
// as a *domain.ValidationError alongside it.
func (c *Controller) CheckOne(ctx context.Context, id domain.RecordID) (domain.ConnectivityResult, error) {
	var (
		rec domain.ProxyRecord
		f   *flight
	)

	for f == nil {
		c.mu.Lock()
		if existing, ok := c.flights[id]; ok {
			c.mu.Unlock()
			if err := existing.wait(ctx); err != nil {
				return domain.ConnectivityResult{}, err
			}
			if existing.kind == flightCheck {
				c.metrics.RecordCoalescedCheck()
				return existing.result, existing.err
			}
			continue
		}

		cached, ok := c.snap.records[id]
		if !ok {
			c.mu.Unlock()
			return domain.ConnectivityResult{}, fmt.Errorf("proxy %d: %w", id, domain.ErrNotFound)
		}
		f = newFlight(flightCheck)
		c.flights[id] = f
		cached.Checking = true
		c.snap = c.snap.with(cached)
		rec = cached
		c.mu.Unlock()
	}

	// The check runs to completion even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)
	start := time.Now()

	_, invalid := endpoint.ValidateRequest(rec.ProbeRequest())
	result := c.prober.Probe(runCtx, rec.ProbeRequest())

	fields := domain.RecordFields{CheckResult: &result}
	if result.IPInfo != nil {
		fields.IP = &result.IPInfo.IP
		fields.IPCountry = &result.IPInfo.Country
	}

	c.metrics.RecordCheck(id, result, time.Since(start))
	c.logger.Debug("proxy checked",
		zap.Int64("proxy_id", int64(id)),
		zap.Int("connected", result.ConnectedCount()),
		zap.Int("targets", len(result.Connectivity)),
		zap.Duration("duration", time.Since(start)))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	updated, err := c.store.Update(runCtx, id, fields)
	if err != nil {
		c.logger.Error("failed to store check result",
			zap.Int64("proxy_id", int64(id)),
			zap.Error(err))
		updated = rec
		f.err = fmt.Errorf("failed to store check result for proxy %d: %w", id, err)
	} else {
		f.err = invalid
	}
	f.result = result

	c.mu.Lock()
	delete(c.flights, id)
	if _, ok := c.snap.records[id]; ok {
		updated.Checking = false
		c.snap = c.snap.with(updated)
	}
	close(f.done)
	c.mu.Unlock()

	return f.result, f.err
}

// CheckBatch checks the given records through the worker pool. Cancelling ctx
// stops the batch between records; records already being checked finish.
func (c *Controller) CheckBatch(ctx context.Context, ids []domain.RecordID) (domain.BatchReport, error) {
	report := domain.BatchReport{BatchID: uuid.NewString()}
	logger := c.logger.With(zap.String("batch_id", report.BatchID))
	logger.Info("batch check started", zap.Int("records", len(ids)))

	start := time.Now()
	result := c.pool.Run(ctx, ids, func(ctx context.Context, id domain.RecordID) error {
		_, err := c.CheckOne(ctx, id)
		return err
	})

	report.Checked = result.Checked
	report.Failed = result.Failed
	report.Skipped = result.Skipped
	report.Cancelled = result.Cancelled
	report.Duration = time.Since(start)

	c.metrics.RecordBatch(report)
	logger.Info("batch check finished",
		zap.Int("checked", len(report.Checked)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Bool("cancelled", report.Cancelled),
		zap.Duration("duration", report.Duration))

	if report.Cancelled {
		return report, fmt.Errorf("batch %s cancelled: %w", report.BatchID, context.Cause(ctx))
	}
	return report, nil
}

// CheckAll checks every record currently in the directory.
func (c *Controller) CheckAll(ctx context.Context) (domain.BatchReport, error) {
	snap := c.current()
	ids := make([]domain.RecordID, len(snap.order))
	copy(ids, snap.order)
	return c.CheckBatch(ctx, ids)
}

// Verify probes a credential that has not been saved, such as one being
// edited. Nothing is written to the store.
func (c *Controller) Verify(ctx context.Context, req domain.ProbeRequest) (domain.ConnectivityResult, error) {
	_, invalid := endpoint.ValidateRequest(req)
	return c.prober.Probe(ctx, req), invalid
}

func (c *Controller) Create(ctx context.Context, rec domain.ProxyRecord) (domain.ProxyRecord, error) {
	if err := endpoint.ValidateRecord(rec); err != nil {
		return domain.ProxyRecord{}, err
	}
	rec.ID = 0
	rec.Checking = false

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	created, err := c.store.Create(ctx, rec)
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("failed to create proxy: %w", err)
	}
	if err := c.reloadLocked(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Update applies a partial update once no other operation is running on the
// record.
func (c *Controller) Update(ctx context.Context, id domain.RecordID, fields domain.RecordFields) (domain.ProxyRecord, error) {
	if err := endpoint.ValidateFields(fields); err != nil {
		return domain.ProxyRecord{}, err
	}

	f, err := c.acquire(ctx, id)
	if err != nil {
		return domain.ProxyRecord{}, err
	}
	defer c.release(id, f)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	updated, err := c.store.Update(ctx, id, fields)
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("failed to update proxy %d: %w", id, err)
	}

	if err := c.reloadLocked(ctx); err != nil {
		return updated, err
	}
	return updated, nil
}

// Delete removes records not referenced by a profile. Referenced ids are
// reported in DeleteResult.FailedIDs.
func (c *Controller) Delete(ctx context.Context, ids []domain.RecordID) (domain.DeleteResult, error) {
	unique := make([]domain.RecordID, 0, len(ids))
	seen := make(map[domain.RecordID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	// Fixed acquisition order keeps overlapping deletes from deadlocking.
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	held := make(map[domain.RecordID]*flight, len(unique))
	defer func() {
		for id, f := range held {
			c.release(id, f)
		}
	}()
	for _, id := range unique {
		f, err := c.acquire(ctx, id)
		if err != nil {
			return domain.DeleteResult{}, err
		}
		held[id] = f
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	result, err := c.store.BatchDelete(ctx, unique)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("failed to delete proxies: %w", err)
	}
	if len(result.FailedIDs) > 0 {
		c.logger.Info("proxies still referenced by profiles were kept",
			zap.Any("proxy_ids", result.FailedIDs))
	}

	if err := c.reloadLocked(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// ExportRows returns the cached directory as export rows in display order.
func (c *Controller) ExportRows() []domain.ExportRow {
	records := c.Records()
	rows := make([]domain.ExportRow, len(records))
	for i, rec := range records {
		rows[i] = rec.ExportRow()
	}
	return rows
}

func (c *Controller) Export(ctx context.Context, sink interfaces.ExportSink) error {
	rows := c.ExportRows()
	if err := sink.Export(ctx, rows); err != nil {
		return fmt.Errorf("failed to export %d rows: %w", len(rows), err)
	}
	return nil
}

func (c *Controller) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// acquire waits until no operation is running on id and registers a write.
func (c *Controller) acquire(ctx context.Context, id domain.RecordID) (*flight, error) {
	for {
		c.mu.Lock()
		existing, ok := c.flights[id]
		if !ok {
			f := newFlight(flightWrite)
			c.flights[id] = f
			c.mu.Unlock()
			return f, nil
		}
		c.mu.Unlock()

		if err := existing.wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Controller) release(id domain.RecordID, f *flight) {
	c.mu.Lock()
	if c.flights[id] == f {
		delete(c.flights, id)
	}
	close(f.done)
	c.mu.Unlock()
}

// IsValidation reports whether err carries a *domain.ValidationError.
func IsValidation(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}
