package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before any state transition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AlreadyRunningError is returned by Start while a run is non-terminal.
type AlreadyRunningError struct {
	RunID string
}

func (e *AlreadyRunningError) Error() string {
	if e.RunID == "" {
		return "a scrape run is already in progress"
	}
	return fmt.Sprintf("scrape run %s is already in progress", e.RunID)
}

func (e *AlreadyRunningError) Is(target error) bool {
	_, ok := target.(*AlreadyRunningError)
	return ok
}

var ErrAlreadyRunning = &AlreadyRunningError{}

// SourceError is an adapter fetch failure. Recovered per source.
type SourceError struct {
	Source  string
	Keyword string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s (keyword %q): %v", e.Source, e.Keyword, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ChannelDeliveryError is a failed (job, channel) delivery.
type ChannelDeliveryError struct {
	Channel string
	JobID   int64
	Err     error
}

func (e *ChannelDeliveryError) Error() string {
	return fmt.Sprintf("deliver job %d to %s: %v", e.JobID, e.Channel, e.Err)
}

func (e *ChannelDeliveryError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage failure. Fatal marks run-level state.
type PersistenceError struct {
	Op    string
	Fatal bool
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var ErrNotFound = errors.New("not found")

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
