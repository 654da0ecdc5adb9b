package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	return records
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	ctx := context.Background()
	logger.WithComponent("server").With("addr", "127.0.0.1:3000").Info(ctx, "listening", "port", 3000)
	logger.Warn(ctx, errors.New("broken pipe"), "write failed", "request_id", "abc")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, "listening", records[0]["msg"])
	assert.Equal(t, "server", records[0]["component"])
	assert.Equal(t, "127.0.0.1:3000", records[0]["addr"])
	assert.EqualValues(t, 3000, records[0]["port"])

	assert.Equal(t, "WARN", records[1]["level"])
	assert.Equal(t, "broken pipe", records[1]["error"])
	assert.Equal(t, "abc", records[1]["request_id"])
}

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	derived := logger.WithComponent("router")
	ctx := context.Background()

	derived.Debug(ctx, "hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(slog.LevelDebug)
	assert.Equal(t, slog.LevelDebug, logger.Level())

	derived.Debug(ctx, "visible")
	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "visible", records[0]["msg"])
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchboard.log")

	var buf bytes.Buffer
	logger, err := New(Config{
		Level:  "info",
		Format: "text",
		Output: &buf,
		File:   &FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1},
	})
	require.NoError(t, err)

	logger.Info(context.Background(), "stopped", "exit_code", 0)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=stopped")
	assert.Contains(t, buf.String(), "msg=stopped")
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "text", Output: &buf})
	require.NoError(t, err)

	logger.StdLogger(slog.LevelWarn).Print("http: Accept error")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "Accept error")
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	logger.Error(context.Background(), errors.New("ignored"), "nothing happens")
	assert.NoError(t, logger.Close())
}
