package util

import (
	"bytes"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, parseLogFormat("json"))
	assert.Equal(t, FormatJSON, parseLogFormat("JSON"))
	assert.Equal(t, FormatText, parseLogFormat("text"))
	assert.Equal(t, FormatText, parseLogFormat(""))
	assert.Equal(t, FormatText, parseLogFormat("yaml"))
}

func TestRenderEntryText(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "bucket closed",
		Fields:    map[string]interface{}{"labels": 2},
	}

	out, err := renderEntry(entry, FormatText)
	require.NoError(t, err)
	assert.Contains(t, out, "[INFO] bucket closed")
	assert.Contains(t, out, "labels=2")
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{level: LevelInfo}
	logger.AddOutput(NewConsoleOutput(&buf, FormatJSON))

	logger.Infof("wrote %d records", 3)

	var decoded LogEntry
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "INFO", decoded.Level)
	assert.Equal(t, "wrote 3 records", decoded.Message)
}

func TestNewLoggerSelectsFormat(t *testing.T) {
	logger := NewLogger("info", "", "json", true)
	require.Len(t, logger.outputs, 1)
	console, ok := logger.outputs[0].(*ConsoleOutput)
	require.True(t, ok)
	assert.Equal(t, FormatJSON, console.format)
}
