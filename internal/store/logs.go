package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"techflow-engine/internal/domain"
)

func (d *DB) AppendLog(ctx context.Context, e domain.LogEntry) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode log metadata: %w", err)
	}
	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO logs (id, ts, level, message, metadata) VALUES (?, ?, ?, ?, ?);`,
		e.ID, formatTime(e.Timestamp), string(e.Level), e.Message, string(b))
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

type LogFilter struct {
	Level domain.LogLevel
	Limit int
}

// ListLogs returns entries newest first.
func (d *DB) ListLogs(ctx context.Context, f LogFilter) ([]domain.LogEntry, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}
	q := `SELECT id, ts, level, message, metadata FROM logs`
	args := []any{}
	if f.Level != "" {
		q += ` WHERE level = ?`
		args = append(args, string(f.Level))
	}
	q += ` ORDER BY ts DESC, rowid DESC LIMIT ?;`
	args = append(args, f.Limit)

	rows, err := d.Pool.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	out := []domain.LogEntry{}
	for rows.Next() {
		var (
			e         domain.LogEntry
			ts, level string
			meta      string
		)
		if err := rows.Scan(&e.ID, &ts, &level, &e.Message, &meta); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		e.Level = domain.LogLevel(level)
		_ = json.Unmarshal([]byte(meta), &e.Metadata)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteLogs removes every entry and returns how many were removed.
func (d *DB) DeleteLogs(ctx context.Context) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM logs;`)
	if err != nil {
		return 0, fmt.Errorf("delete logs: %w", err)
	}
	return res.RowsAffected()
}

// LastCompletion is the timestamp of the newest "Scraping completed" entry.
func (d *DB) LastCompletion(ctx context.Context) (*time.Time, error) {
	var ts string
	err := d.Pool.QueryRowContext(ctx,
		`SELECT ts FROM logs WHERE message = ? ORDER BY ts DESC LIMIT 1;`,
		domain.MsgScrapeCompleted).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last completion: %w", err)
	}
	t := parseTime(ts)
	return &t, nil
}
