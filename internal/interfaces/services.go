package interfaces

import (
	"context"

	"proxy-checker/internal/domain"
)

// Prober checks one proxy credential against every probe target.
type Prober interface {
	Probe(ctx context.Context, req domain.ProbeRequest) domain.ConnectivityResult
}

// Store is the persistence contract for proxy records.
type Store interface {
	List(ctx context.Context) ([]domain.ProxyRecord, error)
	Get(ctx context.Context, id domain.RecordID) (domain.ProxyRecord, error)
	Create(ctx context.Context, rec domain.ProxyRecord) (domain.ProxyRecord, error)
	Update(ctx context.Context, id domain.RecordID, fields domain.RecordFields) (domain.ProxyRecord, error)
	BatchDelete(ctx context.Context, ids []domain.RecordID) (domain.DeleteResult, error)
}

// ExportSink receives directory rows in display order.
type ExportSink interface {
	Export(ctx context.Context, rows []domain.ExportRow) error
}

// BatchChecker runs a check over the whole directory.
type BatchChecker interface {
	CheckAll(ctx context.Context) (domain.BatchReport, error)
}

// Scheduler defines the interface for periodic directory checks
type Scheduler interface {
	Start(ctx context.Context)
	Stop() error
	IsHealthy() bool
}
