// Package scheduler fires scheduled scrape runs. A cron tick polls the
// computed next run time; the schedule itself lives in the settings store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/logger"
)

type Runner interface {
	Start(ctx context.Context, rc domain.RunConfig) (domain.ScrapeRun, error)
	Sources() []string
}

type Store interface {
	Schedule(ctx context.Context) (domain.ScheduleConfig, error)
	SaveSchedule(ctx context.Context, sc domain.ScheduleConfig, known []string) error
}

// LastRuns reports when a run last completed.
type LastRuns interface {
	LastCompletion(ctx context.Context) (*time.Time, error)
}

type LogSink interface {
	Record(ctx context.Context, level domain.LogLevel, msg string, meta map[string]any) domain.LogEntry
}

type Scheduler struct {
	runner Runner
	store  Store
	last   LastRuns
	sink   LogSink
	log    logger.Logger
	poll   time.Duration
	now    func() time.Time

	cron *cron.Cron

	// mu serializes schedule reads and writes
	mu   sync.Mutex
	cfg  domain.ScheduleConfig
	next *time.Time
}

func New(runner Runner, store Store, last LastRuns, sink LogSink, log logger.Logger, poll time.Duration) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Scheduler{
		runner: runner,
		store:  store,
		last:   last,
		sink:   sink,
		log:    logger.Component(log, "scheduler"),
		poll:   poll,
		now:    time.Now,
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Start loads the schedule and begins polling.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	spec := fmt.Sprintf("@every %s", s.poll)
	if _, err := s.cron.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", logger.String("spec", spec))
	return nil
}

// Stop halts the cron and waits for a tick in progress.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Reload re-reads the stored schedule and recomputes the next run.
func (s *Scheduler) Reload(ctx context.Context) error {
	sc, err := s.store.Schedule(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = sc
	s.next = ComputeNextRun(sc, s.now())
	s.mu.Unlock()
	return nil
}

// Save validates and stores sc, then returns the view with the recomputed
// next run.
func (s *Scheduler) Save(ctx context.Context, sc domain.ScheduleConfig) (domain.ScheduleConfig, error) {
	if err := s.store.SaveSchedule(ctx, sc, s.runner.Sources()); err != nil {
		return domain.ScheduleConfig{}, err
	}
	if err := s.Reload(ctx); err != nil {
		return domain.ScheduleConfig{}, err
	}
	return s.View(ctx)
}

// View returns the schedule with its derived LastRun and NextRun.
func (s *Scheduler) View(ctx context.Context) (domain.ScheduleConfig, error) {
	s.mu.Lock()
	out := s.cfg
	out.Sources = append([]string(nil), s.cfg.Sources...)
	if s.next != nil {
		n := *s.next
		out.NextRun = &n
	}
	s.mu.Unlock()

	if s.last != nil {
		last, err := s.last.LastCompletion(ctx)
		if err != nil {
			return domain.ScheduleConfig{}, err
		}
		out.LastRun = last
	}
	return out, nil
}

// Tick starts a run when one is due. A run already in progress is not an
// error: the tick is retried on the next poll.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	cfg, next := s.cfg, s.next
	now := s.now()
	s.mu.Unlock()

	if next == nil || now.Before(*next) {
		return
	}

	run, err := s.runner.Start(ctx, cfg.RunConfig())
	var already *domain.AlreadyRunningError
	switch {
	case errors.As(err, &already):
		s.log.Info("scheduled run deferred, a run is in progress", logger.String("run_id", already.RunID))
		return
	case err != nil:
		s.log.Error("scheduled run failed to start", logger.Error(err))
		if s.sink != nil {
			s.sink.Record(ctx, domain.LevelError, "Scheduled run failed to start", map[string]any{"error": err.Error()})
		}
		s.recompute(now)
		return
	}

	s.log.Info("scheduled run started", logger.String("run_id", run.ID))
	s.recompute(now)
}

// RunFinished recomputes the next run after any run ends, manual or
// scheduled, so a manual run that covered a due slot does not trigger a
// second run on the next tick.
func (s *Scheduler) RunFinished(run domain.ScrapeRun) {
	s.recompute(s.now())
	s.log.Debug("next run recomputed",
		logger.String("run_id", run.ID),
		logger.String("status", string(run.Status)))
}

func (s *Scheduler) recompute(now time.Time) {
	s.mu.Lock()
	s.next = ComputeNextRun(s.cfg, now)
	s.mu.Unlock()
}

// NextRun reports the currently computed next run.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		return nil
	}
	n := *s.next
	return &n
}
