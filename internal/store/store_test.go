package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techflow-engine/internal/domain"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleJob(link, title, company string) domain.Job {
	return domain.Job{
		Title:         title,
		Company:       company,
		Location:      "Cairo, Egypt",
		Requirements:  []string{"3+ years Go"},
		Link:          link,
		CanonicalLink: link,
		Source:        domain.SourceWuzzuf,
		Keyword:       "Backend",
		CreatedAt:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTest(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, schemaVersion, v)
}

func TestMigrateLeavesCurrentSchemaAlone(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`PRAGMA user_version`).WillReturnRows(sqlmock.NewRows([]string{"user_version"}).AddRow(schemaVersion))
	mock.ExpectCommit()

	require.NoError(t, Migrate(pool))
	assert.NoError(t, mock.ExpectationsWereMet(), "no DDL runs on an up-to-date database")
}

func TestInsertJobIdentity(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	id, inserted, err := db.InsertJob(ctx, sampleJob("https://wuzzuf.net/jobs/p/1", "Backend Engineer", "Acme"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, id)

	// same canonical link
	_, inserted, err = db.InsertJob(ctx, sampleJob("https://wuzzuf.net/jobs/p/1", "Other", "Other"))
	require.NoError(t, err)
	assert.False(t, inserted)

	// same (title, company), different link
	_, inserted, err = db.InsertJob(ctx, sampleJob("https://wuzzuf.net/jobs/p/2", " backend  engineer", "ACME"))
	require.NoError(t, err)
	assert.False(t, inserted)

	// same title, no company: not an identity match
	_, inserted, err = db.InsertJob(ctx, sampleJob("https://wuzzuf.net/jobs/p/3", "Backend Engineer", ""))
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err := db.JobExists(ctx, "https://wuzzuf.net/jobs/p/9", "Backend Engineer", "acme")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.JobExists(ctx, "https://wuzzuf.net/jobs/p/9", "Backend Engineer", "")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := db.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"3+ years Go"}, got.Requirements)
	assert.Equal(t, []string{}, got.Skills)
	assert.True(t, got.CreatedAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
}

func TestDeliveryFlagsDoNotClobber(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	id, _, err := db.InsertJob(ctx, sampleJob("https://x/1", "Go Dev", "A"))
	require.NoError(t, err)

	require.NoError(t, db.MarkBlogPosted(ctx, id, "https://blog/post"))
	require.NoError(t, db.MarkChannelSent(ctx, id, domain.ChannelTelegram))
	require.NoError(t, db.SetShortURL(ctx, id, "https://tinyurl.com/x"))
	require.Error(t, db.MarkChannelSent(ctx, id, "fax"))

	j, err := db.GetJob(ctx, id)
	require.NoError(t, err)
	assert.True(t, j.PostedToBlog)
	assert.True(t, j.SentToTelegram)
	assert.False(t, j.SentToWhatsApp)
	assert.Equal(t, "https://blog/post", j.BlogURL)
	assert.Equal(t, "https://tinyurl.com/x", j.ShortURL)

	st, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalJobs)
	assert.Equal(t, 1, st.WuzzufJobs)
	assert.Equal(t, 1, st.PostedToBlog)
	assert.Equal(t, 1, st.SentToTelegram)
	assert.Equal(t, 0, st.SentToWhatsApp)
	assert.Equal(t, 1, st.WithShortURL)
}

func TestListAndDeleteJobs(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	for i, link := range []string{"https://x/1", "https://x/2", "https://x/3"} {
		j := sampleJob(link, "Job "+link, "")
		j.CreatedAt = j.CreatedAt.Add(time.Duration(i) * time.Minute)
		if i == 2 {
			j.Source = domain.SourceIndeed
		}
		_, _, err := db.InsertJob(ctx, j)
		require.NoError(t, err)
	}

	all, err := db.ListJobs(ctx, ListJobsOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "https://x/3", all[0].Link, "newest first")

	indeed, err := db.ListJobs(ctx, ListJobsOpts{Source: "Indeed"})
	require.NoError(t, err)
	assert.Len(t, indeed, 1)

	page, err := db.ListJobs(ctx, ListJobsOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "https://x/2", page[0].Link)

	missing, err := db.JobsMissingShortURL(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, missing, 3)

	require.NoError(t, db.DeleteJob(ctx, all[0].ID))
	assert.ErrorIs(t, db.DeleteJob(ctx, all[0].ID), domain.ErrNotFound)
	_, err = db.GetJob(ctx, all[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogs(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	entries := []domain.LogEntry{
		{ID: "a", Timestamp: base, Level: domain.LevelInfo, Message: domain.MsgScrapeStarted},
		{ID: "b", Timestamp: base.Add(time.Second), Level: domain.LevelWarning, Message: "wuzzuf failed"},
		{ID: "c", Timestamp: base.Add(2 * time.Second), Level: domain.LevelInfo, Message: domain.MsgScrapeCompleted,
			Metadata: map[string]any{"progress": 100}},
	}
	for _, e := range entries {
		require.NoError(t, db.AppendLog(ctx, e))
	}

	got, err := db.ListLogs(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.EqualValues(t, 100, got[0].Metadata["progress"])

	warn, err := db.ListLogs(ctx, LogFilter{Level: domain.LevelWarning})
	require.NoError(t, err)
	require.Len(t, warn, 1)
	assert.Equal(t, "b", warn[0].ID)

	last, err := db.LastCompletion(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(base.Add(2*time.Second)))

	n, err := db.DeleteLogs(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	last, err = db.LastCompletion(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRunsAndSummaries(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	for i, status := range []domain.RunStatus{domain.StatusCompleted, domain.StatusFailed, domain.StatusCompleted} {
		id := string(rune('a' + i))
		run := domain.ScrapeRun{ID: id, Status: domain.StatusRunning, StartedAt: base, Config: domain.DefaultRunConfig()}
		require.NoError(t, db.CreateRun(ctx, run))

		sum := domain.NewRunSummary(id)
		sum.JobsSaved = i + 1
		sum.Timestamp = base.Add(time.Duration(i) * 24 * time.Hour)
		finished := sum.Timestamp
		run.Status = status
		run.Summary = &sum
		run.FinishedAt = &finished
		run.Progress = 100
		require.NoError(t, db.FinishRun(ctx, run))
	}

	recent, err := db.RecentSummaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2, "failed runs are not part of history")
	assert.Equal(t, "c", recent[0].RunID)

	since, err := db.SummariesSince(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, 3, since[0].JobsSaved)

	err = db.FinishRun(ctx, domain.ScrapeRun{ID: "missing", Status: domain.StatusFailed})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	_, ok, err := db.GetSetting(ctx, "telegram")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.PutSetting(ctx, "telegram", []byte(`{"enabled":true}`)))
	require.NoError(t, db.PutSetting(ctx, "telegram", []byte(`{"enabled":false}`)))

	v, ok, err := db.GetSetting(ctx, "telegram")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"enabled":false}`, string(v))
}

func TestInsertJobWrapsDriverError(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectExec("INSERT OR IGNORE INTO jobs").WillReturnError(boom)

	_, inserted, err := New(pool).InsertJob(context.Background(), sampleJob("https://x/1", "t", "c"))
	assert.False(t, inserted)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertJobIgnoredRow(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	mock.ExpectExec("INSERT OR IGNORE INTO jobs").WillReturnResult(sqlmock.NewResult(0, 0))

	_, inserted, err := New(pool).InsertJob(context.Background(), sampleJob("https://x/1", "t", "c"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
