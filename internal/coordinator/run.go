package coordinator

import (
	"context"
	"fmt"

	"techflow-engine/internal/classify"
	"techflow-engine/internal/domain"
	"techflow-engine/internal/logger"
	"techflow-engine/internal/scrape"
	"techflow-engine/internal/scrape/types"
)

// pass holds the per-run working state of the scrape loop.
type pass struct {
	c   *Coordinator
	r   *run
	rc  domain.RunConfig
	sum domain.RunSummary

	precheck *classify.Classifier
	full     *classify.Classifier
	index    *classify.RunIndex

	accepted  []domain.Job
	processed int
}

func (c *Coordinator) scrape(ctx context.Context, r *run) (domain.RunSummary, bool, error) {
	p := &pass{c: c, r: r, rc: r.state.Config, sum: domain.NewRunSummary(r.state.ID)}

	keywords, err := c.deps.Keywords.Keywords(ctx)
	if err != nil {
		return p.sum, false, fmt.Errorf("load keywords: %w", err)
	}
	if len(keywords) == 0 {
		return p.sum, false, ErrNoKeywords
	}

	matcher := classify.NewMatcher(keywords, c.opts.Synonyms)
	region := classify.NewRegion(c.opts.RegionTerms)
	p.index = classify.NewRunIndex(c.deps.Jobs)
	p.full = classify.New(matcher, region, p.index, classify.Policy{RequireRequirements: c.opts.RequireRequirements})
	// duplicates are caught before the secondary fetch so known jobs are
	// never re-fetched
	p.precheck = classify.New(matcher, region, p.index, classify.Policy{})

	searched := []string{}
	for _, kw := range keywords {
		if c.stopRequested(r) {
			break
		}
		if len(p.accepted) >= p.rc.MaxJobs {
			break
		}
		searched = append(searched, kw)

		batches := scrape.FetchKeyword(ctx, c.deps.Sources, p.rc.Sources, kw, c.opts.FetchLimit, c.opts.PerSourceTimeout)
		if p.consume(ctx, kw, batches) {
			break
		}
	}

	for _, kw := range searched {
		if p.sum.KeywordsFound[kw] == 0 {
			p.sum.KeywordsEmpty = append(p.sum.KeywordsEmpty, kw)
		}
	}

	stopped := c.stopRequested(r)
	if len(p.accepted) > 0 && c.deps.Distributor != nil {
		c.deps.Distributor.Distribute(ctx, p.accepted, p.rc)
	}
	return p.sum, stopped, nil
}

// consume classifies every listing of one keyword's batches. It returns true
// when the run must not search further keywords.
func (p *pass) consume(ctx context.Context, kw string, batches []scrape.Batch) bool {
	c := p.c
	keywordHit := false

	for _, b := range batches {
		c.deps.Metrics.SourceFetch(b.Source, b.Err)
		if b.Err != nil {
			c.deps.Log.Record(ctx, domain.LevelWarning, "Source fetch failed", map[string]any{
				"source":  b.Source,
				"keyword": kw,
				"error":   b.Err.Error(),
			})
			continue
		}
		if c.stopRequested(p.r) {
			return true
		}

		var hydrator types.Hydrator
		if a, ok := c.deps.Sources.Get(b.Source); ok {
			hydrator, _ = a.(types.Hydrator)
		}

		for i := 0; i < len(b.Listings); i++ {
			if c.stopRequested(p.r) {
				return true
			}
			if len(p.accepted) >= p.rc.MaxJobs {
				p.skipRest(ctx, b.Source, b.Listings[i:], classify.ReasonTargetReached)
				break
			}
			if c.opts.OnePerKeyword && keywordHit {
				p.skipRest(ctx, b.Source, b.Listings[i:], classify.ReasonVarietySkip)
				break
			}
			if p.process(ctx, kw, b.Source, b.Listings[i], hydrator) {
				keywordHit = true
			}
		}
	}
	return len(p.accepted) >= p.rc.MaxJobs
}

func (p *pass) skipRest(ctx context.Context, source string, rest []domain.RawListing, reason string) {
	for range rest {
		p.count(ctx, source, reason)
	}
}

// count books one examined listing under outcome and emits a progress
// entry every ProgressEvery listings.
func (p *pass) count(ctx context.Context, source, outcome string) {
	c := p.c
	p.sum.TotalScraped++
	switch outcome {
	case "accepted":
	case classify.ReasonDuplicate:
		p.sum.DuplicatesSkipped++
	default:
		p.sum.SkipReasons[outcome]++
	}
	c.deps.Metrics.Listing(source, outcome)

	p.processed++
	progress := len(p.accepted) * 100 / p.rc.MaxJobs
	if progress > 99 {
		progress = 99
	}
	c.setProgress(p.r, progress)
	if p.processed%c.opts.ProgressEvery == 0 {
		c.deps.Log.Record(ctx, domain.LevelInfo, "Scraping progress", map[string]any{
			"run_id":    p.r.state.ID,
			"progress":  progress,
			"processed": p.processed,
			"saved":     len(p.accepted),
		})
	}
}

// process classifies one listing and persists it when accepted. It reports
// whether a job was saved.
func (p *pass) process(ctx context.Context, kw, source string, l domain.RawListing, h types.Hydrator) bool {
	c := p.c

	var d classify.Decision
	if p.rc.UseSecondaryFetch && h != nil && l.ParseErr == nil && len(l.Requirements) == 0 {
		d = p.precheck.Classify(ctx, l, kw)
		if d.Accept {
			if err := scrape.Hydrate(ctx, h, &l, c.opts.PerListingTimeout, c.opts.SecondaryRetries); err != nil {
				c.deps.Log.Record(ctx, domain.LevelWarning, "Secondary fetch failed", map[string]any{
					"source": source,
					"link":   l.Link,
					"error":  err.Error(),
				})
			}
			d = p.full.Classify(ctx, l, kw)
		}
	} else {
		d = p.full.Classify(ctx, l, kw)
	}

	if !d.Accept {
		if d.Err != nil {
			c.log.Debug("listing rejected", logger.String("reason", d.Reason), logger.String("source", source), logger.Error(d.Err))
		}
		p.count(ctx, source, d.Reason)
		return false
	}

	job := domain.JobFromListing(l, d.Canonical, d.Keyword, c.now())
	id, inserted, err := c.deps.Jobs.InsertJob(ctx, job)
	switch {
	case err != nil:
		perr := &domain.PersistenceError{Op: "insert job", Err: err}
		c.deps.Log.Record(ctx, domain.LevelError, "Job not saved", map[string]any{
			"title":  l.Title,
			"link":   l.Link,
			"source": source,
			"error":  perr.Error(),
		})
		p.count(ctx, source, classify.ReasonPersistError)
		return false
	case !inserted:
		p.index.Remember(d.Canonical, l.Title, l.Company)
		p.count(ctx, source, classify.ReasonDuplicate)
		return false
	}

	job.ID = id
	p.index.Remember(d.Canonical, l.Title, l.Company)
	p.accepted = append(p.accepted, job)
	p.sum.JobsSaved++
	p.sum.KeywordsFound[d.Keyword]++
	p.sum.Sources[source]++
	p.count(ctx, source, "accepted")

	c.deps.Log.Record(ctx, domain.LevelInfo, "Job saved", map[string]any{
		"job_id":  id,
		"title":   job.Title,
		"company": job.Company,
		"keyword": d.Keyword,
		"source":  source,
	})
	return true
}
