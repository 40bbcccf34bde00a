package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorHandlerHighlightsErrorInRed(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelDebug)

	log.Error("database connection failed", "retry_count", 3)

	out := buf.String()
	assert.Contains(t, out, colorRed)
	assert.Contains(t, out, "database connection failed")
	assert.Contains(t, out, "retry_count=3")
}

func TestColorHandlerHighlightsPersistenceInfoInGreen(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelInfo)

	log.Info("persisting nodes to database")

	assert.Contains(t, buf.String(), colorGreen)
}

func TestColorHandlerRespectsLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelWarn)

	log.Info("should not appear")
	log.Warn("should appear")

	out := buf.String()
	assert.False(t, strings.Contains(out, "should not appear"))
	assert.True(t, strings.Contains(out, "should appear"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
