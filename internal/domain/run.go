package domain

import (
	"fmt"
	"strings"
	"time"
)

type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusStopping  RunStatus = "stopping"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Active is true while a run still owns the single-flight slot.
func (s RunStatus) Active() bool { return s == StatusRunning || s == StatusStopping }

func (s RunStatus) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

const MaxJobsLimit = 100

// RunConfig is the snapshot a run is started with.
type RunConfig struct {
	MaxJobs           int      `json:"max_jobs" yaml:"max_jobs"`
	Sources           []string `json:"sources" yaml:"sources"`
	UploadToBlog      bool     `json:"upload_to_blog" yaml:"upload_to_blog"`
	SendToTelegram    bool     `json:"send_to_telegram" yaml:"send_to_telegram"`
	SendToWhatsApp    bool     `json:"send_to_whatsapp" yaml:"send_to_whatsapp"`
	UseShortener      bool     `json:"use_shortener" yaml:"use_shortener"`
	UseSecondaryFetch bool     `json:"use_secondary_fetch" yaml:"use_secondary_fetch"`
	Trigger           string   `json:"trigger,omitempty" yaml:"-"`
}

// DefaultRunConfig mirrors the dashboard defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxJobs:      6,
		Sources:      []string{SourceWuzzuf, SourceIndeed},
		UseShortener: true,
	}
}

// Validate checks the config against the set of sources the process knows.
func (c RunConfig) Validate(known []string) error {
	if c.MaxJobs <= 0 || c.MaxJobs > MaxJobsLimit {
		return &ValidationError{Field: "max_jobs", Message: fmt.Sprintf("must be between 1 and %d", MaxJobsLimit)}
	}
	if len(c.Sources) == 0 {
		return &ValidationError{Field: "sources", Message: "at least one source is required"}
	}
	seen := map[string]bool{}
	for _, s := range c.Sources {
		name := strings.ToLower(strings.TrimSpace(s))
		if name == "" {
			return &ValidationError{Field: "sources", Message: "source name cannot be empty"}
		}
		if seen[name] {
			return &ValidationError{Field: "sources", Message: fmt.Sprintf("duplicate source %q", s)}
		}
		seen[name] = true
		if !contains(known, name) {
			return &ValidationError{Field: "sources", Message: fmt.Sprintf("unknown source %q", s)}
		}
	}
	return nil
}

// Normalized returns a copy with lower-cased, trimmed source names.
func (c RunConfig) Normalized() RunConfig {
	out := c
	out.Sources = make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		out.Sources = append(out.Sources, strings.ToLower(strings.TrimSpace(s)))
	}
	if out.Trigger == "" {
		out.Trigger = TriggerManual
	}
	return out
}

// ScrapeRun is one execution of the pipeline.
type ScrapeRun struct {
	ID         string      `json:"id"`
	Status     RunStatus   `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Progress   int         `json:"progress"`
	Config     RunConfig   `json:"config"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// RunSummary is the archived outcome of a run.
//
// TotalScraped == JobsSaved + DuplicatesSkipped + sum(SkipReasons) for any
// summary produced by the coordinator.
type RunSummary struct {
	RunID             string         `json:"run_id,omitempty"`
	TotalScraped      int            `json:"total_scraped"`
	JobsSaved         int            `json:"jobs_saved"`
	DuplicatesSkipped int            `json:"duplicates_skipped"`
	KeywordsFound     map[string]int `json:"keywords_found"`
	KeywordsEmpty     []string       `json:"keywords_empty"`
	SkipReasons       map[string]int `json:"skip_reasons"`
	Sources           map[string]int `json:"sources"`
	Duration          float64        `json:"duration"`
	Timestamp         time.Time      `json:"timestamp"`
	Stopped           bool           `json:"stopped,omitempty"`
}

func NewRunSummary(runID string) RunSummary {
	return RunSummary{
		RunID:         runID,
		KeywordsFound: map[string]int{},
		KeywordsEmpty: []string{},
		SkipReasons:   map[string]int{},
		Sources:       map[string]int{},
	}
}

// Skipped is the sum of all skip reasons.
func (s RunSummary) Skipped() int {
	n := 0
	for _, v := range s.SkipReasons {
		n += v
	}
	return n
}

// Balanced reports whether the scrape counters add up.
func (s RunSummary) Balanced() bool {
	return s.TotalScraped == s.JobsSaved+s.DuplicatesSkipped+s.Skipped()
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
