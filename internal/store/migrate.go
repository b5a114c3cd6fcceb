package store

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var schemaV1 = []string{
	`
CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  requirements TEXT NOT NULL DEFAULT '[]',
  skills TEXT NOT NULL DEFAULT '[]',
  description TEXT NOT NULL DEFAULT '',
  link TEXT NOT NULL,
  canonical_link TEXT NOT NULL,
  source TEXT NOT NULL,
  keyword TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  posted_to_blog INTEGER NOT NULL DEFAULT 0,
  sent_to_telegram INTEGER NOT NULL DEFAULT 0,
  sent_to_whatsapp INTEGER NOT NULL DEFAULT 0,
  blog_url TEXT NOT NULL DEFAULT '',
  short_url TEXT NOT NULL DEFAULT '',
  title_key TEXT NOT NULL DEFAULT '',
  company_key TEXT NOT NULL DEFAULT ''
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_canonical ON jobs(canonical_link) WHERE canonical_link != '';`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_title_company ON jobs(title_key, company_key) WHERE company_key != '';`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);`,
	`
CREATE TABLE IF NOT EXISTS logs (
  id TEXT PRIMARY KEY,
  ts TEXT NOT NULL,
  level TEXT NOT NULL,
  message TEXT NOT NULL,
  metadata TEXT NOT NULL DEFAULT '{}'
);`,
	`CREATE INDEX IF NOT EXISTS idx_logs_ts ON logs(ts);`,
	`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  run_trigger TEXT NOT NULL DEFAULT '',
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL DEFAULT '',
  progress INTEGER NOT NULL DEFAULT 0,
  config TEXT NOT NULL DEFAULT '{}',
  summary TEXT NOT NULL DEFAULT '',
  summary_ts TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT ''
);`,
	`CREATE INDEX IF NOT EXISTS idx_runs_summary_ts ON runs(summary_ts);`,
	`
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
}

// Migrate brings the schema to schemaVersion, tracked in PRAGMA user_version.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	for _, stmt := range schemaV1 {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
