package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name          string
		level         Level
		logFunc       func(Logger, string)
		expectedInLog bool
	}{
		{"debug at debug", LevelDebug, func(l Logger, m string) { l.Debug(m) }, true},
		{"debug at info", LevelInfo, func(l Logger, m string) { l.Debug(m) }, false},
		{"info at info", LevelInfo, func(l Logger, m string) { l.Info(m) }, true},
		{"warn at error", LevelError, func(l Logger, m string) { l.Warn(m) }, false},
		{"error at error", LevelError, func(l Logger, m string) { l.Error(m) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.logFunc(NewLogger(tt.level, buf), "merge finished")
			assert.Equal(t, tt.expectedInLog, strings.Contains(buf.String(), "merge finished"))
		})
	}
}

func TestLogger_FieldsAndQuoting(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(LevelInfo, buf)

	log.Info("wrote file",
		F("path", "out/base/user.base.service.ts"),
		F("bytes", 42),
		F("note", "has spaces"),
		Err(errors.New("boom")),
	)

	out := buf.String()
	assert.Contains(t, out, "path=out/base/user.base.service.ts")
	assert.Contains(t, out, "bytes=42")
	assert.Contains(t, out, `note="has spaces"`)
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "[INFO]")
}

func TestLogger_WithFieldsSharesLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := NewLogger(LevelInfo, buf)
	child := parent.WithFields(Component("merge"), F("task", "t1"))

	child.Info("start", F("entity", "e1"))
	out := buf.String()
	for _, want := range []string{"component=merge", "task=t1", "entity=e1"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	parent.SetLevel(LevelError)
	child.Info("hidden")
	assert.Empty(t, buf.String(), "child should observe the parent's level")
}

func TestLogger_SilentMode(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(LevelSilent, buf)

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"off":     LevelSilent,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", Level(999).String())
}
