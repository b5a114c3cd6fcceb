package domain

import (
	"fmt"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ScheduleConfig is the singleton schedule. LastRun and NextRun are derived.
type ScheduleConfig struct {
	Enabled           bool       `json:"enabled"`
	Time              string     `json:"time"`
	Frequency         Frequency  `json:"frequency"`
	MaxJobs           int        `json:"max_jobs"`
	Sources           []string   `json:"sources"`
	UploadToBlog      bool       `json:"upload_to_blog"`
	SendToTelegram    bool       `json:"send_to_telegram"`
	SendToWhatsApp    bool       `json:"send_to_whatsapp"`
	UseShortener      bool       `json:"use_shortener"`
	UseSecondaryFetch bool       `json:"use_secondary_fetch"`
	LastRun           *time.Time `json:"last_run"`
	NextRun           *time.Time `json:"next_run"`
}

func DefaultSchedule() ScheduleConfig {
	return ScheduleConfig{
		Enabled:      false,
		Time:         "10:00",
		Frequency:    FrequencyDaily,
		MaxJobs:      6,
		Sources:      []string{SourceWuzzuf, SourceIndeed},
		UseShortener: true,
	}
}

// ClockTime parses the HH:MM time-of-day.
func (s ScheduleConfig) ClockTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s.Time))
	if err != nil {
		return 0, 0, &ValidationError{Field: "time", Message: fmt.Sprintf("expected HH:MM, got %q", s.Time)}
	}
	return t.Hour(), t.Minute(), nil
}

func (s ScheduleConfig) Validate(known []string) error {
	if _, _, err := s.ClockTime(); err != nil {
		return err
	}
	switch s.Frequency {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
	default:
		return &ValidationError{Field: "frequency", Message: fmt.Sprintf("unknown frequency %q", s.Frequency)}
	}
	return s.RunConfig().Validate(known)
}

// RunConfig is the Start config a scheduled run uses.
func (s ScheduleConfig) RunConfig() RunConfig {
	return RunConfig{
		MaxJobs:           s.MaxJobs,
		Sources:           append([]string(nil), s.Sources...),
		UploadToBlog:      s.UploadToBlog,
		SendToTelegram:    s.SendToTelegram,
		SendToWhatsApp:    s.SendToWhatsApp,
		UseShortener:      s.UseShortener,
		UseSecondaryFetch: s.UseSecondaryFetch,
		Trigger:           TriggerSchedule,
	}
}
