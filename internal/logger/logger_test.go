package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestComponentFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Component(Wrap(zap.New(core)), "coordinator")

	l.Info("run started", String("run_id", "r1"), Int("max_jobs", 6))
	l.Debug("dropped below level")
	l.Error("boom", Error(errors.New("disk full")))

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "run started", first.Message)
	ctx := first.ContextMap()
	assert.Equal(t, "coordinator", ctx["component"])
	assert.Equal(t, "r1", ctx["run_id"])
	assert.Equal(t, int64(6), ctx["max_jobs"])
	assert.Equal(t, "disk full", logs.All()[1].ContextMap()["error"])
}

func TestNewBuildsLogger(t *testing.T) {
	l, err := New(Config{Level: "debug", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	l.Debug("hello")
	assert.NotNil(t, l.With(Bool("x", true)))
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	assert.NoError(t, l.Sync())
	assert.Equal(t, l, l.With(String("a", "b")))
}
