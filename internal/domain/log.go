package domain

import "time"

type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

func (l LogLevel) Valid() bool {
	return l == LevelInfo || l == LevelWarning || l == LevelError
}

// LogEntry is an operator-visible activity row. Append-only.
type LogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
}

// Messages the dashboard keys on.
const (
	MsgScrapeStarted   = "Scraping started"
	MsgScrapeCompleted = "Scraping completed"
	MsgScrapeFailed    = "Scraping failed"
	MsgScrapeStopped   = "Scraping stopped by user"
	MsgStopRequested   = "Scraping will stop after current job"
	MsgNothingRunning  = "No scraping process is currently running"
)
