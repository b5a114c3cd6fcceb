// Package coordinator owns the scrape run state machine:
//
//	idle -> running -> (stopping) -> completed | failed
//
// At most one run is non-terminal at any time. Start returns as soon as the
// run is registered; the run itself executes in the background.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"techflow-engine/internal/distribute"
	"techflow-engine/internal/domain"
	"techflow-engine/internal/logger"
	"techflow-engine/internal/metrics"
	"techflow-engine/internal/scrape/types"
)

type JobStore interface {
	InsertJob(ctx context.Context, j domain.Job) (id int64, inserted bool, err error)
	JobExists(ctx context.Context, canonical, title, company string) (bool, error)
}

type RunStore interface {
	CreateRun(ctx context.Context, r domain.ScrapeRun) error
	FinishRun(ctx context.Context, r domain.ScrapeRun) error
}

// LogSink receives operator-visible LogEntries.
type LogSink interface {
	Record(ctx context.Context, level domain.LogLevel, msg string, meta map[string]any) domain.LogEntry
}

type KeywordSource interface {
	Keywords(ctx context.Context) ([]string, error)
}

type Distributor interface {
	Distribute(ctx context.Context, jobs []domain.Job, rc domain.RunConfig) distribute.Report
}

// Options are the scrape policies a run is executed with.
type Options struct {
	Synonyms            map[string][]string
	RegionTerms         []string
	RequireRequirements bool
	OnePerKeyword       bool

	FetchLimit        int
	PerSourceTimeout  time.Duration
	PerListingTimeout time.Duration
	SecondaryRetries  int
	ProgressEvery     int

	// OnFinish sees every run once it reaches a terminal status, before
	// Wait returns.
	OnFinish func(domain.ScrapeRun)
}

func (o *Options) defaults() {
	if len(o.RegionTerms) == 0 {
		o.RegionTerms = []string{"Egypt"}
	}
	if o.FetchLimit <= 0 {
		o.FetchLimit = 25
	}
	if o.PerSourceTimeout <= 0 {
		o.PerSourceTimeout = 45 * time.Second
	}
	if o.PerListingTimeout <= 0 {
		o.PerListingTimeout = 20 * time.Second
	}
	if o.SecondaryRetries < 0 {
		o.SecondaryRetries = 0
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 5
	}
}

type Deps struct {
	Jobs        JobStore
	Runs        RunStore
	Log         LogSink
	Keywords    KeywordSource
	Sources     *types.Registry
	Distributor Distributor
	Metrics     *metrics.Metrics
	Logger      logger.Logger
}

// Status is the pollable view of the current (or last) run.
type Status struct {
	IsActive bool             `json:"is_active"`
	Progress int              `json:"progress"`
	Status   domain.RunStatus `json:"status"`
	RunID    string           `json:"run_id,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type run struct {
	state domain.ScrapeRun
	stop  chan struct{}
	done  chan struct{}
}

type Coordinator struct {
	deps Deps
	opts Options
	log  logger.Logger
	now  func() time.Time

	// base is the parent of every run context; Shutdown cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	current *run
}

func New(deps Deps, opts Options) *Coordinator {
	opts.defaults()
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		deps:   deps,
		opts:   opts,
		log:    logger.Component(deps.Logger, "coordinator"),
		now:    time.Now,
		base:   base,
		cancel: cancel,
	}
}

// Sources lists the source names a run may ask for.
func (c *Coordinator) Sources() []string { return c.deps.Sources.Names() }

// Start validates rc and launches a run. It fails with *ValidationError
// before any state change, or with *AlreadyRunningError while another run
// is non-terminal.
func (c *Coordinator) Start(ctx context.Context, rc domain.RunConfig) (domain.ScrapeRun, error) {
	rc = rc.Normalized()
	if err := rc.Validate(c.Sources()); err != nil {
		return domain.ScrapeRun{}, err
	}

	c.mu.Lock()
	if c.current != nil && c.current.state.Status.Active() {
		id := c.current.state.ID
		c.mu.Unlock()
		return domain.ScrapeRun{}, &domain.AlreadyRunningError{RunID: id}
	}
	r := &run{
		state: domain.ScrapeRun{
			ID:        uuid.NewString(),
			Status:    domain.StatusRunning,
			StartedAt: c.now().UTC(),
			Config:    rc,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	prev := c.current
	c.current = r
	snapshot := r.state
	c.mu.Unlock()

	if err := c.deps.Runs.CreateRun(ctx, snapshot); err != nil {
		perr := &domain.PersistenceError{Op: "create run", Fatal: true, Err: err}
		c.mu.Lock()
		c.current = prev
		c.mu.Unlock()
		close(r.done)
		c.log.Error("run not started", logger.Error(perr))
		return domain.ScrapeRun{}, perr
	}

	c.deps.Metrics.RunStarted()
	go c.execute(r)
	return snapshot, nil
}

// Stop asks the running run to finish after the listing in progress. It
// reports false when nothing is running.
func (c *Coordinator) Stop(ctx context.Context) (string, bool) {
	c.mu.Lock()
	r := c.current
	if r == nil || r.state.Status != domain.StatusRunning {
		c.mu.Unlock()
		return domain.MsgNothingRunning, false
	}
	r.state.Status = domain.StatusStopping
	close(r.stop)
	id := r.state.ID
	c.mu.Unlock()

	c.deps.Log.Record(ctx, domain.LevelWarning, domain.MsgStopRequested, map[string]any{"run_id": id})
	return domain.MsgStopRequested, true
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Status{Status: domain.StatusIdle}
	}
	s := c.current.state
	return Status{
		IsActive: s.Status.Active(),
		Progress: s.Progress,
		Status:   s.Status,
		RunID:    s.ID,
		Error:    s.Error,
	}
}

// Current returns a copy of the current or last run.
func (c *Coordinator) Current() (domain.ScrapeRun, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.ScrapeRun{}, false
	}
	return c.current.state, true
}

// Wait blocks until the run with id is terminal and returns its final
// state. An empty id waits for the current run.
func (c *Coordinator) Wait(ctx context.Context, id string) (domain.ScrapeRun, error) {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil || (id != "" && r.state.ID != id) {
		return domain.ScrapeRun{}, fmt.Errorf("run %q: %w", id, domain.ErrNotFound)
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return domain.ScrapeRun{}, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return r.state, nil
}

// Shutdown stops any running run and waits for it to finish or for ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.Stop(ctx)
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	defer c.cancel()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		c.cancel()
		<-r.done
		return ctx.Err()
	}
}

func (c *Coordinator) setProgress(r *run, p int) {
	c.mu.Lock()
	r.state.Progress = p
	c.mu.Unlock()
}

func (c *Coordinator) stopRequested(r *run) bool {
	select {
	case <-r.stop:
		return true
	default:
		return c.base.Err() != nil
	}
}

func (c *Coordinator) execute(r *run) {
	ctx := c.base
	id := r.state.ID
	rc := r.state.Config
	started := c.now()

	c.deps.Log.Record(ctx, domain.LevelInfo, domain.MsgScrapeStarted, map[string]any{
		"run_id":  id,
		"trigger": rc.Trigger,
		"config":  rc,
	})

	var (
		summary domain.RunSummary
		stopped bool
		runErr  error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				runErr = fmt.Errorf("run panic: %v", p)
			}
		}()
		summary, stopped, runErr = c.scrape(ctx, r)
	}()

	finished := c.now().UTC()
	summary.Duration = finished.Sub(started).Seconds()
	summary.Timestamp = finished
	summary.Stopped = stopped

	c.mu.Lock()
	r.state.FinishedAt = &finished
	if runErr != nil {
		r.state.Status = domain.StatusFailed
		r.state.Error = runErr.Error()
	} else {
		r.state.Status = domain.StatusCompleted
		r.state.Progress = 100
		r.state.Summary = &summary
	}
	final := r.state
	c.mu.Unlock()

	if err := c.deps.Runs.FinishRun(context.WithoutCancel(ctx), final); err != nil {
		perr := &domain.PersistenceError{Op: "finish run", Fatal: true, Err: err}
		c.mu.Lock()
		r.state.Status = domain.StatusFailed
		r.state.Error = perr.Error()
		final = r.state
		c.mu.Unlock()
		runErr = perr
	}

	logCtx := context.WithoutCancel(ctx)
	switch {
	case runErr != nil:
		c.deps.Log.Record(logCtx, domain.LevelError, domain.MsgScrapeFailed, map[string]any{
			"run_id": id,
			"error":  runErr.Error(),
		})
	case stopped:
		c.deps.Log.Record(logCtx, domain.LevelWarning, domain.MsgScrapeStopped, map[string]any{
			"run_id":  id,
			"summary": summary,
		})
	default:
		c.deps.Log.Record(logCtx, domain.LevelInfo, domain.MsgScrapeCompleted, map[string]any{
			"run_id":  id,
			"summary": summary,
		})
	}

	c.deps.Metrics.RunFinished(string(final.Status), rc.Trigger, summary.Duration)
	c.log.Info("run finished",
		logger.String("run_id", id),
		logger.String("status", string(final.Status)),
		logger.Int("jobs_saved", summary.JobsSaved),
		logger.Int("total_scraped", summary.TotalScraped),
		logger.Bool("stopped", stopped))
	if c.opts.OnFinish != nil {
		c.opts.OnFinish(final)
	}
	close(r.done)
}

// ErrNoKeywords fails a run that has nothing to search for.
var ErrNoKeywords = errors.New("no keywords configured")
