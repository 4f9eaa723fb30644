package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

	assert.NotNil(t, handler.Handler, "Expected handler to wrap a slog handler")
	assert.NotNil(t, handler.l, "Expected handler to have a logger")
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("attributes rendered as JSON", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelWarn, "search failed", 0)
		record.AddAttrs(slog.String("ticket", "abc"), slog.Int("status", 502))

		require.NoError(t, handler.Handle(ctx, record))
		output := buf.String()
		assert.Contains(t, output, "WARN:")
		assert.Contains(t, output, "search failed")
		assert.Contains(t, output, `"ticket": "abc"`)
		assert.Contains(t, output, `"status": 502`)
	})

	t.Run("no attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "ready", 0)

		require.NoError(t, handler.Handle(ctx, record))
		assert.Contains(t, buf.String(), "INFO:")
		assert.Contains(t, buf.String(), "{}")
	})

	t.Run("timestamp format", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		stamp := time.Date(2024, 3, 1, 9, 5, 7, 123_000_000, time.UTC)
		record := slog.NewRecord(stamp, slog.LevelError, "boom", 0)

		require.NoError(t, handler.Handle(ctx, record))
		assert.Contains(t, buf.String(), "[09:05:07.123]")
	})
}

func TestPrettyHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{}))

	logger.With(slog.String("component", "client")).WithGroup("req").Info("sent", slog.String("id", "42"))

	output := buf.String()
	assert.Contains(t, output, `"component": "client"`)
	assert.Contains(t, output, `"req.id": "42"`)
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docqa.log")

	logger, closer, err := OpenFile(path, slog.LevelInfo)
	require.NoError(t, err)
	logger.Info("written")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}
