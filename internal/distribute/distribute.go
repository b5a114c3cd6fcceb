// Package distribute fans accepted jobs out to the shortener and the
// publishing channels.
package distribute

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/logger"
	"techflow-engine/internal/metrics"
	"techflow-engine/internal/publish"
	"techflow-engine/internal/shortener"
)

type Store interface {
	MarkBlogPosted(ctx context.Context, id int64, blogURL string) error
	MarkChannelSent(ctx context.Context, id int64, channel string) error
	SetShortURL(ctx context.Context, id int64, shortURL string) error
	JobsMissingShortURL(ctx context.Context, limit int) ([]domain.Job, error)
}

type Recorder interface {
	Record(ctx context.Context, level domain.LogLevel, msg string, meta map[string]any) domain.LogEntry
}

type Config struct {
	Store     Store
	Shortener shortener.Gateway
	Gateways  []publish.Gateway
	Footer    publish.Footer
	Recorder  Recorder
	Logger    logger.Logger
	Metrics   *metrics.Metrics

	CallTimeout time.Duration
	Concurrency int
}

type Distributor struct {
	store     Store
	shortener shortener.Gateway
	gateways  map[string]publish.Gateway
	footer    publish.Footer
	rec       Recorder
	log       logger.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	limit     int
}

func New(cfg Config) *Distributor {
	d := &Distributor{
		store:     cfg.Store,
		shortener: cfg.Shortener,
		gateways:  map[string]publish.Gateway{},
		footer:    cfg.Footer,
		rec:       cfg.Recorder,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		timeout:   cfg.CallTimeout,
		limit:     cfg.Concurrency,
	}
	if d.shortener == nil {
		d.shortener = shortener.Disabled{}
	}
	if d.rec == nil {
		d.rec = nopRecorder{}
	}
	if d.log == nil {
		d.log = logger.NewNop()
	}
	d.log = logger.Component(d.log, "distribute")
	if d.timeout <= 0 {
		d.timeout = 30 * time.Second
	}
	if d.limit <= 0 {
		d.limit = 4
	}
	for _, g := range cfg.Gateways {
		if g != nil {
			d.gateways[g.Channel()] = g
		}
	}
	return d
}

type nopRecorder struct{}

func (nopRecorder) Record(_ context.Context, level domain.LogLevel, msg string, meta map[string]any) domain.LogEntry {
	return domain.LogEntry{Level: level, Message: msg, Metadata: meta}
}

// Report counts outcomes of one Distribute call.
type Report struct {
	Shortened int            `json:"shortened"`
	Delivered map[string]int `json:"delivered"`
	Failed    map[string]int `json:"failed"`
}

type tally struct {
	mu sync.Mutex
	r  Report
}

func (t *tally) add(channel string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.r.Failed[channel]++
		return
	}
	t.r.Delivered[channel]++
}

// Distribute delivers jobs to every channel enabled in rc. Each (job,
// channel) pair is an independent task: a failure is recorded as an error
// LogEntry, leaves that flag unset and does not affect any other task.
// It returns once every task has finished.
func (d *Distributor) Distribute(ctx context.Context, jobs []domain.Job, rc domain.RunConfig) Report {
	t := &tally{r: Report{Delivered: map[string]int{}, Failed: map[string]int{}}}
	channels := enabledChannels(rc)
	if len(jobs) == 0 || (len(channels) == 0 && !rc.UseShortener) {
		return t.r
	}

	// Apply links are resolved once per job before any channel sees them.
	links := make([]string, len(jobs))
	var shortened atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.limit)
	for i := range jobs {
		g.Go(func() error {
			var fresh bool
			links[i], fresh = d.resolveLink(ctx, &jobs[i], rc.UseShortener)
			if fresh {
				shortened.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	t.r.Shortened = int(shortened.Load())

	if len(channels) == 0 {
		return t.r
	}

	d.rec.Record(ctx, domain.LevelInfo, "Distributing jobs", map[string]any{
		"jobs":     len(jobs),
		"channels": channels,
	})

	g = new(errgroup.Group)
	g.SetLimit(d.limit)
	for i := range jobs {
		for _, ch := range channels {
			if jobs[i].Delivered(ch) {
				continue
			}
			g.Go(func() error {
				err := d.deliver(ctx, jobs[i], ch, links[i])
				d.metrics.Delivery(ch, err)
				t.add(ch, err)
				if err != nil {
					d.rec.Record(ctx, domain.LevelError, "Channel delivery failed", map[string]any{
						"job_id":  jobs[i].ID,
						"title":   jobs[i].Title,
						"channel": ch,
						"error":   err.Error(),
					})
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	d.rec.Record(ctx, domain.LevelInfo, "Distribution finished", map[string]any{
		"delivered": t.r.Delivered,
		"failed":    t.r.Failed,
	})
	return t.r
}

func enabledChannels(rc domain.RunConfig) []string {
	var out []string
	if rc.UploadToBlog {
		out = append(out, domain.ChannelBlog)
	}
	if rc.SendToTelegram {
		out = append(out, domain.ChannelTelegram)
	}
	if rc.SendToWhatsApp {
		out = append(out, domain.ChannelWhatsApp)
	}
	return out
}

// resolveLink picks the apply link: short URL, then the already-posted blog
// URL, then the original link. The choice is made once per job.
// fresh is true when a new short URL was obtained.
func (d *Distributor) resolveLink(ctx context.Context, j *domain.Job, useShortener bool) (link string, fresh bool) {
	if j.ShortURL != "" {
		return j.ShortURL, false
	}
	if useShortener {
		if short, ok := d.shorten(ctx, *j); ok {
			j.ShortURL = short
			return short, true
		}
	}
	if j.PostedToBlog && j.BlogURL != "" {
		return j.BlogURL, false
	}
	return j.Link, false
}

func (d *Distributor) shorten(ctx context.Context, j domain.Job) (string, bool) {
	target := j.CanonicalLink
	if target == "" {
		target = j.Link
	}

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	short, err := d.shortener.Shorten(cctx, target)
	switch {
	case errors.Is(err, shortener.ErrDisabled):
		d.metrics.Shortener("disabled")
		return "", false
	case errors.Is(err, shortener.ErrUnsupportedHost):
		d.metrics.Shortener("unsupported")
		return "", false
	case err != nil:
		d.metrics.Shortener("error")
		d.rec.Record(ctx, domain.LevelWarning, "Link shortening failed", map[string]any{
			"job_id": j.ID,
			"link":   target,
			"error":  err.Error(),
		})
		return "", false
	}
	d.metrics.Shortener("ok")

	if err := d.store.SetShortURL(ctx, j.ID, short); err != nil {
		d.log.Error("short url not saved",
			logger.Error(&domain.PersistenceError{Op: "set short url", Err: err}),
			logger.Int64("job_id", j.ID))
	}
	return short, true
}

func (d *Distributor) deliver(ctx context.Context, j domain.Job, channel, link string) error {
	gw, ok := d.gateways[channel]
	if !ok {
		return &domain.ChannelDeliveryError{Channel: channel, JobID: j.ID, Err: errors.New("channel not configured")}
	}

	post := publish.Post{JobID: j.ID, Title: j.Title}
	if channel == domain.ChannelBlog {
		html, err := publish.RenderBlogPost(j)
		if err != nil {
			return &domain.ChannelDeliveryError{Channel: channel, JobID: j.ID, Err: err}
		}
		post.HTML = html
		post.Labels = []string{"Jobs"}
	} else {
		post.Text = publish.RenderMessage(j, link, d.footer)
	}

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	res, err := gw.Publish(cctx, post)
	cancel()
	if err != nil {
		return &domain.ChannelDeliveryError{Channel: channel, JobID: j.ID, Err: err}
	}

	if channel == domain.ChannelBlog {
		err = d.store.MarkBlogPosted(ctx, j.ID, res.URL)
	} else {
		err = d.store.MarkChannelSent(ctx, j.ID, channel)
	}
	if err != nil {
		return &domain.ChannelDeliveryError{Channel: channel, JobID: j.ID,
			Err: &domain.PersistenceError{Op: "mark " + channel, Err: err}}
	}
	return nil
}

// RefreshShortLinks shortens up to limit stored jobs that have no short URL
// yet and returns how many were updated.
func (d *Distributor) RefreshShortLinks(ctx context.Context, limit int) (int, error) {
	jobs, err := d.store.JobsMissingShortURL(ctx, limit)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "list jobs missing short url", Err: err}
	}

	var updated atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.limit)
	for _, j := range jobs {
		if !shortener.Shortenable(j.Link) {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if _, ok := d.shorten(ctx, j); ok {
				updated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(updated.Load())
	d.rec.Record(ctx, domain.LevelInfo, "Short links refreshed", map[string]any{
		"candidates": len(jobs),
		"updated":    n,
	})
	return n, ctx.Err()
}
