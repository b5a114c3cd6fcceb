// Package activity records operator-visible LogEntries: persisted, mirrored
// to the process logger and pushed to live subscribers.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/events"
	"techflow-engine/internal/logger"
)

type Appender interface {
	AppendLog(ctx context.Context, e domain.LogEntry) error
}

type Publisher interface {
	Emit(typ string, data any)
}

type Recorder struct {
	store Appender
	hub   Publisher
	log   logger.Logger
	now   func() time.Time
}

func NewRecorder(store Appender, hub Publisher, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Recorder{store: store, hub: hub, log: logger.Component(log, "activity"), now: time.Now}
}

// Record appends one entry. A failed write is logged and the entry dropped;
// it never fails the caller.
func (r *Recorder) Record(ctx context.Context, level domain.LogLevel, msg string, meta map[string]any) domain.LogEntry {
	e := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: r.now().UTC(),
		Level:     level,
		Message:   msg,
		Metadata:  meta,
	}

	fields := []logger.Field{logger.String("entry_id", e.ID)}
	for k, v := range meta {
		fields = append(fields, logger.Any(k, v))
	}
	switch level {
	case domain.LevelError:
		r.log.Error(msg, fields...)
	case domain.LevelWarning:
		r.log.Warn(msg, fields...)
	default:
		r.log.Info(msg, fields...)
	}

	if r.store != nil {
		if err := r.store.AppendLog(ctx, e); err != nil {
			r.log.Error("log entry dropped",
				logger.Error(&domain.PersistenceError{Op: "append log", Err: err}),
				logger.String("message", msg))
		}
	}
	if r.hub != nil {
		r.hub.Emit(events.TypeLog, e)
	}
	return e
}
