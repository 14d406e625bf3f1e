package store

import (
	"context"
	"fmt"
	"time"

	"proxy-checker/internal/domain"
)

// CreateProfile records a browser profile bound to a proxy. Profiles are owned
// by the browser side of the tool; the directory only needs them to refuse
// deleting proxies that are in use.
func (s *SQLiteStore) CreateProfile(ctx context.Context, name string, proxyID domain.RecordID) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profile (name, proxy_id, created_at) VALUES (?, ?, ?)`,
		name, proxyID, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert profile: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profile WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete profile %d: %w", id, err)
	}
	return nil
}
