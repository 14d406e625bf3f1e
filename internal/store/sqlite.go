// Package store persists proxy records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
	"proxy-checker/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS proxy (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		proxy_type   TEXT    NOT NULL,
		proxy        TEXT    NOT NULL,
		ip_checker   TEXT    NOT NULL,
		ip           TEXT    NOT NULL DEFAULT '',
		ip_country   TEXT    NOT NULL DEFAULT '',
		remark       TEXT    NOT NULL DEFAULT '',
		check_result TEXT    NOT NULL DEFAULT '',
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profile (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL,
		proxy_id   INTEGER,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profile_proxy_id ON profile(proxy_id)`,
}

const memoryPath = ":memory:"

const selectColumns = `id, proxy_type, proxy, ip_checker, ip, ip_country, remark, check_result`

// SQLiteStore implements interfaces.Store. Checking state is never stored.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and migrates) the database at path, creating its directory if
// needed. ":memory:" is accepted.
func Open(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With(zap.String("component", "store")),
	}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.ProxyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM proxy ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list proxies: %w", err)
	}
	defer rows.Close()

	var records []domain.ProxyRecord
	for rows.Next() {
		rec, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proxy: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list proxies: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id domain.RecordID) (domain.ProxyRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM proxy WHERE id = ?`, id)
	rec, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProxyRecord{}, fmt.Errorf("proxy %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("get proxy %d: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec domain.ProxyRecord) (domain.ProxyRecord, error) {
	checkResult, err := encodeResult(rec.CheckResult)
	if err != nil {
		return domain.ProxyRecord{}, err
	}

	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO proxy (proxy_type, proxy, ip_checker, ip, ip_country, remark, check_result, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.ProxyType), rec.Endpoint, string(rec.IPChecker),
		rec.IP, rec.IPCountry, rec.Remark, checkResult, now, now,
	)
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("insert proxy: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("insert proxy: %w", err)
	}
	return s.Get(ctx, domain.RecordID(id))
}

func (s *SQLiteStore) Update(ctx context.Context, id domain.RecordID, fields domain.RecordFields) (domain.ProxyRecord, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if fields.ProxyType != nil {
		set("proxy_type", string(*fields.ProxyType))
	}
	if fields.Endpoint != nil {
		set("proxy", *fields.Endpoint)
	}
	if fields.IPChecker != nil {
		set("ip_checker", string(*fields.IPChecker))
	}
	if fields.IP != nil {
		set("ip", *fields.IP)
	}
	if fields.IPCountry != nil {
		set("ip_country", *fields.IPCountry)
	}
	if fields.Remark != nil {
		set("remark", *fields.Remark)
	}
	if fields.CheckResult != nil {
		encoded, err := encodeResult(fields.CheckResult)
		if err != nil {
			return domain.ProxyRecord{}, err
		}
		set("check_result", encoded)
	}

	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	set("updated_at", time.Now().Unix())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE proxy SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("update proxy %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("update proxy %d: %w", id, err)
	}
	if n == 0 {
		return domain.ProxyRecord{}, fmt.Errorf("proxy %d: %w", id, domain.ErrNotFound)
	}

	return s.Get(ctx, id)
}

// BatchDelete removes every id that no profile references. Referenced ids are
// kept and reported in FailedIDs; the rest are still deleted.
func (s *SQLiteStore) BatchDelete(ctx context.Context, ids []domain.RecordID) (domain.DeleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var failed []domain.RecordID
	for _, id := range ids {
		var refs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM profile WHERE proxy_id = ?`, id).Scan(&refs); err != nil {
			return domain.DeleteResult{}, fmt.Errorf("check references of proxy %d: %w", id, err)
		}
		if refs > 0 {
			failed = append(failed, id)
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM proxy WHERE id = ?`, id); err != nil {
			return domain.DeleteResult{}, fmt.Errorf("delete proxy %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.DeleteResult{}, fmt.Errorf("commit delete: %w", err)
	}

	if len(failed) > 0 {
		s.logger.Info("proxies still referenced by profiles were not deleted",
			zap.Any("ids", failed))
	}

	return domain.DeleteResult{
		Success:   len(failed) == 0,
		FailedIDs: failed,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scan(row scanner) (domain.ProxyRecord, error) {
	var (
		rec         domain.ProxyRecord
		proxyType   string
		ipChecker   string
		checkResult string
	)
	if err := row.Scan(&rec.ID, &proxyType, &rec.Endpoint, &ipChecker,
		&rec.IP, &rec.IPCountry, &rec.Remark, &checkResult); err != nil {
		return domain.ProxyRecord{}, err
	}
	rec.ProxyType = domain.ProxyType(proxyType)
	rec.IPChecker = domain.IPChecker(ipChecker)

	if checkResult != "" {
		var result domain.ConnectivityResult
		if err := json.Unmarshal([]byte(checkResult), &result); err != nil {
			s.logger.Warn("ignoring unreadable check result",
				zap.Int64("id", int64(rec.ID)), zap.Error(err))
		} else {
			rec.CheckResult = &result
		}
	}

	return rec, nil
}

func encodeResult(result *domain.ConnectivityResult) (string, error) {
	if result == nil {
		return "", nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode check result: %w", err)
	}
	return string(data), nil
}
