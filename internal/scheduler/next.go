package scheduler

import (
	"time"

	"techflow-engine/internal/domain"
)

// ComputeNextRun returns when sc should next fire after now, or nil when
// the schedule is disabled or malformed. The configured time of day is read
// in now's location.
func ComputeNextRun(sc domain.ScheduleConfig, now time.Time) *time.Time {
	if !sc.Enabled {
		return nil
	}
	hour, minute, err := sc.ClockTime()
	if err != nil {
		return nil
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if next.After(now) {
		return &next
	}

	switch sc.Frequency {
	case domain.FrequencyHourly:
		next = time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(time.Hour)
		}
	case domain.FrequencyDaily:
		next = next.AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		next = next.AddDate(0, 0, 7)
	default:
		return nil
	}
	return &next
}
