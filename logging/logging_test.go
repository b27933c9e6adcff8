package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/angas/eloverblik-exporter/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	rows []database.LogEntryRow
	err  error
}

func (m *memorySink) SaveLogEntry(ctx context.Context, r database.LogEntryRow) error {
	m.rows = append(m.rows, r)
	return m.err
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestSQLiteHandlerJSONAttrs(t *testing.T) {
	sink := &memorySink{}
	logger := slog.New(NewSQLiteHandler(sink, slog.LevelInfo, LogAttrFormatJSON)).
		With("module", "exporter").
		WithGroup("run")

	logger.Debug("skipped")
	logger.Info("export done", "buckets", 24)

	require.Len(t, sink.rows, 1)
	row := sink.rows[0]
	assert.Equal(t, "export done", row.Message)
	assert.Equal(t, int(slog.LevelInfo), row.Level)
	assert.WithinDuration(t, time.Now(), row.Timestamp, time.Minute)

	var attrs []map[string]string
	require.NoError(t, json.Unmarshal([]byte(row.Attrs), &attrs))
	assert.Equal(t, []map[string]string{{"module": "exporter"}, {"run.buckets": "24"}}, attrs)
}

func TestSQLiteHandlerTextAttrs(t *testing.T) {
	sink := &memorySink{}
	logger := slog.New(NewSQLiteHandler(sink, slog.LevelDebug, LogAttrFormatText))

	logger.Warn("odd value", "expr", "a=b;c")
	logger.Info("no attrs")

	require.Len(t, sink.rows, 2)
	assert.Equal(t, `expr=a\=b\;c`, sink.rows[0].Attrs)
	assert.Equal(t, "", sink.rows[1].Attrs)
}

func TestSQLiteHandlerFollowsLevelVar(t *testing.T) {
	sink := &memorySink{}
	var lvl slog.LevelVar
	lvl.Set(slog.LevelError)
	logger := slog.New(NewSQLiteHandler(sink, &lvl, LogAttrFormatJSON))

	logger.Info("dropped")
	lvl.Set(slog.LevelInfo)
	logger.Info("kept")

	require.Len(t, sink.rows, 1)
	assert.Equal(t, "kept", sink.rows[0].Message)
}

func TestMultiHandler(t *testing.T) {
	var buf bytes.Buffer
	console := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	sink := &memorySink{err: errors.New("disk full")}
	db := NewSQLiteHandler(sink, slog.LevelWarn, LogAttrFormatJSON)

	h := NewMultiHandler(console, db)
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler(db).Enabled(context.Background(), slog.LevelInfo))

	logger := slog.New(h).With("module", "test")
	logger.Debug("console only")
	assert.Contains(t, buf.String(), "console only")
	assert.Contains(t, buf.String(), "module=test")
	assert.Empty(t, sink.rows)

	// A failing handler does not keep the record from the others
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "both", 0))
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, sink.rows, 1)
	assert.Contains(t, buf.String(), "both")
}
