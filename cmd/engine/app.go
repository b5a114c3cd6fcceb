package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"

	"techflow-engine/internal/activity"
	"techflow-engine/internal/analytics"
	"techflow-engine/internal/config"
	"techflow-engine/internal/coordinator"
	"techflow-engine/internal/domain"
	"techflow-engine/internal/events"
	"techflow-engine/internal/logger"
	"techflow-engine/internal/metrics"
	"techflow-engine/internal/scheduler"
	"techflow-engine/internal/scrape/email"
	"techflow-engine/internal/scrape/indeed"
	"techflow-engine/internal/scrape/types"
	"techflow-engine/internal/scrape/util"
	"techflow-engine/internal/scrape/wuzzuf"
	"techflow-engine/internal/secrets"
	"techflow-engine/internal/settings"
	"techflow-engine/internal/shortener"
	"techflow-engine/internal/store"
)

const dbFile = "techflow.db"

// app holds every wired component of one engine process.
type app struct {
	cfg config.Config
	log logger.Logger

	lock  *flock.Flock
	db    *store.DB
	rdb   *redis.Client
	hub   *events.Hub
	mets  *metrics.Metrics
	rec   *activity.Recorder
	set   *settings.Service
	dist  *channelDistributor
	coord *coordinator.Coordinator
	sched *scheduler.Scheduler
	stats *analytics.Aggregator
}

// buildApp takes the data-dir lock, opens the store and wires the pipeline.
func buildApp(ctx context.Context, cfg config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, hub: events.NewHub(), mets: metrics.New()}

	a.lock = flock.New(filepath.Join(cfg.App.DataDir, "engine.lock"))
	locked, err := a.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data dir %s is in use by another engine", cfg.App.DataDir)
	}

	a.db, err = store.Open(filepath.Join(cfg.App.DataDir, dbFile))
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Redis.URL != "" {
		a.rdb, err = shortener.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			// the cache is optional; shortening still works without it
			log.Warn("redis unavailable, short links will not be cached", logger.Error(err))
			a.rdb = nil
		}
	}

	a.rec = activity.NewRecorder(a.db, a.hub, log)
	a.set = settings.New(a.db, cfg).WithSecrets(secrets.Get)
	a.dist = &channelDistributor{
		settings: a.set,
		store:    a.db,
		rdb:      a.rdb,
		cfg:      cfg,
		rec:      a.rec,
		log:      log,
		mets:     a.mets,
	}

	a.coord = coordinator.New(coordinator.Deps{
		Jobs:        a.db,
		Runs:        a.db,
		Log:         a.rec,
		Keywords:    a.set,
		Sources:     buildSources(cfg, log),
		Distributor: a.dist,
		Metrics:     a.mets,
		Logger:      log,
	}, coordinator.Options{
		Synonyms:            cfg.Scrape.Synonyms,
		RegionTerms:         cfg.Scrape.RegionTerms,
		RequireRequirements: cfg.Scrape.RequireRequirements,
		OnePerKeyword:       cfg.Scrape.OnePerKeyword,
		PerSourceTimeout:    seconds(cfg.Scrape.PerSourceTimeoutSeconds),
		PerListingTimeout:   seconds(cfg.Scrape.PerListingTimeoutSeconds),
		SecondaryRetries:    cfg.Scrape.SecondaryRetries,
		ProgressEvery:       cfg.Scrape.ProgressEvery,

		OnFinish: func(run domain.ScrapeRun) {
			if a.sched != nil {
				a.sched.RunFinished(run)
			}
		},
	})

	a.sched = scheduler.New(a.coord, a.set, a.db, a.rec, log, seconds(cfg.Scheduler.PollSeconds))
	a.stats = analytics.New(a.db)
	return a, nil
}

// Close releases the store, the cache client and the data-dir lock.
func (a *app) Close() error {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.lock != nil {
		errs = append(errs, a.lock.Unlock())
	}
	return errors.Join(errs...)
}

// buildSources registers the enabled adapters in visiting order. They share
// one per-host limiter.
func buildSources(cfg config.Config, log logger.Logger) *types.Registry {
	limiter := util.NewHostLimiter(cfg.Scrape.RequestsPerSecond, 2)
	fetcher := util.NewFetcher(&http.Client{Timeout: seconds(cfg.Scrape.PerSourceTimeoutSeconds)}, limiter, cfg.Scrape.UserAgent)

	reg := types.NewRegistry()
	for _, name := range cfg.EnabledSources() {
		switch name {
		case domain.SourceWuzzuf:
			reg.Add(wuzzuf.New(cfg.Sources.Wuzzuf.BaseURL, fetcher))
		case domain.SourceIndeed:
			reg.Add(indeed.New(cfg.Sources.Indeed.BaseURL, fetcher))
		case domain.SourceEmail:
			e := cfg.Sources.Email
			password, err := secrets.Get(domain.SourceEmail, "password")
			if err != nil {
				log.Warn("email source enabled but no IMAP password in keyring, skipping",
					logger.String("account", secrets.Account(domain.SourceEmail, "password")))
				continue
			}
			mailbox := email_scrape.NewIMAPMailbox(email_scrape.IMAPConfig{
				Host:         e.IMAPHost,
				Port:         e.IMAPPort,
				Username:     e.Username,
				Password:     password,
				Mailbox:      e.Mailbox,
				LookbackDays: e.LookbackDays,
				MaxMessages:  e.MaxMessages,
			})
			reg.Add(email_scrape.New(mailbox, e.SearchSubjectAny, seconds(e.CacheSeconds)))
		}
	}
	return reg
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
