package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSetting returns the raw JSON value for key, or ok=false when unset.
func (d *DB) GetSetting(ctx context.Context, key string) (value []byte, ok bool, err error) {
	var v string
	err = d.Pool.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return []byte(v), true, nil
}

func (d *DB) PutSetting(ctx context.Context, key string, value []byte) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
		key, string(value), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}
