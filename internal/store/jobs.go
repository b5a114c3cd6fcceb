package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"techflow-engine/internal/domain"
)

// IdentityKey normalizes a title or company for the (title, company)
// uniqueness rule.
func IdentityKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

const jobColumns = `id, title, company, location, salary, requirements, skills, description,
  link, canonical_link, source, keyword, created_at,
  posted_to_blog, sent_to_telegram, sent_to_whatsapp, blog_url, short_url`

// InsertJob stores j unless a job with the same identity already exists.
// inserted is false when the row was ignored.
func (d *DB) InsertJob(ctx context.Context, j domain.Job) (id int64, inserted bool, err error) {
	reqJSON, err := json.Marshal(nonNil(j.Requirements))
	if err != nil {
		return 0, false, fmt.Errorf("encode requirements: %w", err)
	}
	skillsJSON, err := json.Marshal(nonNil(j.Skills))
	if err != nil {
		return 0, false, fmt.Errorf("encode skills: %w", err)
	}

	companyKey := IdentityKey(j.Company)
	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs (title, company, location, salary, requirements, skills, description,
  link, canonical_link, source, keyword, created_at, title_key, company_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		j.Title, j.Company, j.Location, j.Salary, string(reqJSON), string(skillsJSON), j.Description,
		j.Link, j.CanonicalLink, j.Source, j.Keyword, formatTime(j.CreatedAt),
		IdentityKey(j.Title), companyKey,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("insert job: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, true, fmt.Errorf("insert job id: %w", err)
	}
	return id, true, nil
}

// JobExists reports whether a job with the canonical link, or with the same
// (title, company) pair when company is known, is already stored.
func (d *DB) JobExists(ctx context.Context, canonical, title, company string) (bool, error) {
	var one int
	err := d.Pool.QueryRowContext(ctx, `
SELECT 1 FROM jobs
WHERE (? != '' AND canonical_link = ?)
   OR (? != '' AND title_key = ? AND company_key = ?)
LIMIT 1;`,
		canonical, canonical,
		IdentityKey(company), IdentityKey(title), IdentityKey(company),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("job exists: %w", err)
	}
	return true, nil
}

type ListJobsOpts struct {
	Source string
	Limit  int
	Offset int
}

func (d *DB) ListJobs(ctx context.Context, opts ListJobsOpts) ([]domain.Job, error) {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	where := ""
	args := []any{}
	if s := strings.TrimSpace(opts.Source); s != "" {
		where = "WHERE source = ?"
		args = append(args, strings.ToLower(s))
	}
	args = append(args, opts.Limit, opts.Offset)

	rows, err := d.Pool.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM jobs
%s
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`, jobColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (d *DB) GetJob(ctx context.Context, id int64) (domain.Job, error) {
	row := d.Pool.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM jobs WHERE id = ?;`, jobColumns), id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, domain.ErrNotFound
	}
	return j, err
}

func (d *DB) DeleteJob(ctx context.Context, id int64) error {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkBlogPosted sets the blog flag and URL. Only these two columns change.
func (d *DB) MarkBlogPosted(ctx context.Context, id int64, blogURL string) error {
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE jobs SET posted_to_blog = 1, blog_url = ? WHERE id = ?;`, blogURL, id)
	if err != nil {
		return fmt.Errorf("mark blog posted: %w", err)
	}
	return nil
}

var sentColumns = map[string]string{
	domain.ChannelTelegram: "sent_to_telegram",
	domain.ChannelWhatsApp: "sent_to_whatsapp",
}

// MarkChannelSent sets the delivery flag of a messaging channel.
func (d *DB) MarkChannelSent(ctx context.Context, id int64, channel string) error {
	col, ok := sentColumns[channel]
	if !ok {
		return fmt.Errorf("mark sent: unknown channel %q", channel)
	}
	_, err := d.Pool.ExecContext(ctx, fmt.Sprintf(`UPDATE jobs SET %s = 1 WHERE id = ?;`, col), id)
	if err != nil {
		return fmt.Errorf("mark %s sent: %w", channel, err)
	}
	return nil
}

func (d *DB) SetShortURL(ctx context.Context, id int64, shortURL string) error {
	_, err := d.Pool.ExecContext(ctx, `UPDATE jobs SET short_url = ? WHERE id = ?;`, shortURL, id)
	if err != nil {
		return fmt.Errorf("set short url: %w", err)
	}
	return nil
}

// JobsMissingShortURL returns up to limit jobs with no short link, oldest first.
func (d *DB) JobsMissingShortURL(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.Pool.QueryContext(ctx, fmt.Sprintf(`
SELECT %s FROM jobs
WHERE short_url = ''
ORDER BY created_at ASC, id ASC
LIMIT ?;`, jobColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("jobs missing short url: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (d *DB) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{BySource: map[string]int{}}
	err := d.Pool.QueryRowContext(ctx, `
SELECT
  COUNT(*),
  COALESCE(SUM(posted_to_blog), 0),
  COALESCE(SUM(sent_to_telegram), 0),
  COALESCE(SUM(sent_to_whatsapp), 0),
  COALESCE(SUM(CASE WHEN short_url != '' THEN 1 ELSE 0 END), 0)
FROM jobs;`).Scan(&st.TotalJobs, &st.PostedToBlog, &st.SentToTelegram, &st.SentToWhatsApp, &st.WithShortURL)
	if err != nil {
		return st, fmt.Errorf("stats: %w", err)
	}

	rows, err := d.Pool.QueryContext(ctx, `SELECT source, COUNT(*) FROM jobs GROUP BY source;`)
	if err != nil {
		return st, fmt.Errorf("stats by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return st, err
		}
		st.BySource[src] = n
	}
	st.WuzzufJobs = st.BySource[domain.SourceWuzzuf]
	st.IndeedJobs = st.BySource[domain.SourceIndeed]
	return st, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (domain.Job, error) {
	var (
		j                   domain.Job
		reqJSON, skillsJSON string
		created             string
		blog, tg, wa        int
	)
	if err := r.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Salary, &reqJSON, &skillsJSON, &j.Description,
		&j.Link, &j.CanonicalLink, &j.Source, &j.Keyword, &created,
		&blog, &tg, &wa, &j.BlogURL, &j.ShortURL,
	); err != nil {
		return j, err
	}
	_ = json.Unmarshal([]byte(reqJSON), &j.Requirements)
	_ = json.Unmarshal([]byte(skillsJSON), &j.Skills)
	j.CreatedAt = parseTime(created)
	j.PostedToBlog = blog != 0
	j.SentToTelegram = tg != 0
	j.SentToWhatsApp = wa != 0
	return j, nil
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
