package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/logger"
	"go.trai.ch/zerr"
)

// newTestLogger returns a logger writing uncolored output to a buffer.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg, ok := logger.New().(*logger.Logger)
	require.True(t, ok)
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name string
		log  func(*logger.Logger)
		want string
	}{
		{name: "info", log: func(l *logger.Logger) { l.Info("3 sources changed") }, want: "3 sources changed\n"},
		{name: "warn", log: func(l *logger.Logger) { l.Warn("cache is stale") }, want: "! cache is stale\n"},
		{name: "warn multiline", log: func(l *logger.Logger) { l.Warn("a\nb") }, want: "! a\nb\n"},
		{name: "error", log: func(l *logger.Logger) { l.Error(errors.New("boom")) }, want: "✗ Error: boom\n"},
		{name: "nil error", log: func(l *logger.Logger) { l.Error(nil) }, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLogger_ErrorChain(t *testing.T) {
	lg, buf := newTestLogger(t)

	cause := zerr.With(zerr.Wrap(errors.New("disk full"), "flush failed"), "store", "inputs")
	err := zerr.With(zerr.Wrap(cause, "failed to close incremental caches"), "stores", 7)
	lg.Error(err)

	g := goldie.New(t)
	g.Assert(t, "error_chain", buf.Bytes())
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Warn("dump")
	lg.Error(zerr.Wrap(errors.New("disk full"), "flush failed"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var warn map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &warn))
	assert.Equal(t, "WARN", warn["level"])
	assert.Equal(t, "dump", warn["msg"])

	var failure map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &failure))
	assert.Equal(t, "ERROR", failure["level"])
	assert.Equal(t, "operation failed", failure["msg"])
	assert.NotNil(t, failure["error"])
}

func TestLogger_SetJSONKeepsOutput(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)
	lg.SetJSON(false)

	lg.Info("back to pretty")
	assert.Equal(t, "back to pretty\n", buf.String())
}

func TestCollectErrorEntries(t *testing.T) {
	err := zerr.With(zerr.Wrap(zerr.Wrap(errors.New("root cause"), "middle"), "outer"), "k", "v")

	entries := logger.CollectErrorEntries(err)
	require.Len(t, entries, 3)
	assert.Equal(t, "outer", entries[0].Message)
	assert.Equal(t, map[string]any{"k": "v"}, entries[0].Metadata)
	assert.Equal(t, "middle", entries[1].Message)
	assert.Equal(t, "root cause", entries[2].Message)
	assert.Nil(t, entries[2].Metadata)
}

func TestCollectErrorEntries_MergesMetadataOnlyLinks(t *testing.T) {
	// zerr.With on a plain error inserts a link without a message.
	err := zerr.Wrap(zerr.With(errors.New("permission denied"), "path", "/tmp/x"), "open failed")

	entries := logger.CollectErrorEntries(err)
	require.Len(t, entries, 2)
	assert.Equal(t, "open failed", entries[0].Message)
	assert.Equal(t, map[string]any{"path": "/tmp/x"}, entries[0].Metadata)
	assert.Equal(t, "permission denied", entries[1].Message)
}

func TestFormatErrorEntries(t *testing.T) {
	got := logger.FormatErrorEntries([]logger.ErrorEntry{
		{Message: "top\nsecond line"},
		{Message: "cause", Metadata: map[string]any{"b": 2, "a": 1}},
	})
	want := "Error: top\n       second line\n\n  Caused by:\n    → cause (a=1, b=2)"
	assert.Equal(t, want, got)
}
