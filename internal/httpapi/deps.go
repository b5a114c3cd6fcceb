package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"techflow-engine/internal/analytics"
	"techflow-engine/internal/coordinator"
	"techflow-engine/internal/domain"
	"techflow-engine/internal/events"
	"techflow-engine/internal/logger"
	"techflow-engine/internal/settings"
	"techflow-engine/internal/store"
)

type Scraper interface {
	Start(ctx context.Context, rc domain.RunConfig) (domain.ScrapeRun, error)
	Stop(ctx context.Context) (string, bool)
	Status() coordinator.Status
}

type Jobs interface {
	ListJobs(ctx context.Context, opts store.ListJobsOpts) ([]domain.Job, error)
	DeleteJob(ctx context.Context, id int64) error
	Stats(ctx context.Context) (domain.Stats, error)
}

type Logs interface {
	ListLogs(ctx context.Context, f store.LogFilter) ([]domain.LogEntry, error)
	DeleteLogs(ctx context.Context) (int64, error)
}

type Settings interface {
	View(ctx context.Context) (settings.View, error)
	Update(ctx context.Context, key string, value json.RawMessage) error
}

type Schedule interface {
	View(ctx context.Context) (domain.ScheduleConfig, error)
	Save(ctx context.Context, sc domain.ScheduleConfig) (domain.ScheduleConfig, error)
}

type Analytics interface {
	Summary(ctx context.Context, r analytics.Range) (analytics.Summary, error)
	History(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

type ShortLinks interface {
	RefreshShortLinks(ctx context.Context, limit int) (int, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// SecretSetter stores one channel credential, normally in the OS keyring.
type SecretSetter func(channel, field, value string) error

type Deps struct {
	Scraper    Scraper
	Jobs       Jobs
	Logs       Logs
	Settings   Settings
	Schedule   Schedule
	Analytics  Analytics
	ShortLinks ShortLinks
	DB         Pinger
	SetSecret  SecretSetter

	Hub     *events.Hub
	Metrics http.Handler
	Logger  logger.Logger

	// APIKey guards every /api route except health. Empty rejects them all.
	APIKey      string
	CORSOrigins []string

	// Routes adds handlers outside /api, such as the local shutdown hook.
	Routes map[string]http.Handler
}
