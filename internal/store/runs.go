package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"techflow-engine/internal/domain"
)

func (d *DB) CreateRun(ctx context.Context, r domain.ScrapeRun) error {
	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encode run config: %w", err)
	}
	_, err = d.Pool.ExecContext(ctx, `
INSERT INTO runs (id, status, run_trigger, started_at, progress, config)
VALUES (?, ?, ?, ?, ?, ?);`,
		r.ID, string(r.Status), r.Config.Trigger, formatTime(r.StartedAt), r.Progress, string(cfg))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun archives the terminal state of r, including its summary.
func (d *DB) FinishRun(ctx context.Context, r domain.ScrapeRun) error {
	var summary, summaryTS string
	if r.Summary != nil {
		b, err := json.Marshal(r.Summary)
		if err != nil {
			return fmt.Errorf("encode run summary: %w", err)
		}
		summary = string(b)
		summaryTS = formatTime(r.Summary.Timestamp)
	}
	finished := ""
	if r.FinishedAt != nil {
		finished = formatTime(*r.FinishedAt)
	}
	res, err := d.Pool.ExecContext(ctx, `
UPDATE runs
SET status = ?, finished_at = ?, progress = ?, summary = ?, summary_ts = ?, error = ?
WHERE id = ?;`,
		string(r.Status), finished, r.Progress, summary, summaryTS, r.Error, r.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, domain.ErrNotFound)
	}
	return nil
}

// SummariesSince returns completed-run summaries with timestamp >= since.
func (d *DB) SummariesSince(ctx context.Context, since time.Time) ([]domain.RunSummary, error) {
	return d.querySummaries(ctx, `
SELECT summary FROM runs
WHERE status = ? AND summary != '' AND summary_ts >= ?
ORDER BY summary_ts DESC;`, string(domain.StatusCompleted), formatTime(since))
}

// RecentSummaries returns the newest limit completed-run summaries.
func (d *DB) RecentSummaries(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	return d.querySummaries(ctx, `
SELECT summary FROM runs
WHERE status = ? AND summary != ''
ORDER BY summary_ts DESC
LIMIT ?;`, string(domain.StatusCompleted), limit)
}

func (d *DB) querySummaries(ctx context.Context, q string, args ...any) ([]domain.RunSummary, error) {
	rows, err := d.Pool.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	out := []domain.RunSummary{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var s domain.RunSummary
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
