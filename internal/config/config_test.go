package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	// An explicitly named but missing file is an error.
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Tracking.BucketDuration)
	assert.Equal(t, 4096, cfg.Tracking.QueueCapacity)
	assert.Equal(t, 300*time.Millisecond, cfg.Tracking.ScrollDebounce)
	assert.Equal(t, 16, cfg.Labels.MaxDepth)
	assert.True(t, cfg.Labels.Watch)
	assert.Equal(t, 5, cfg.Timeline.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeline.BackoffBase)
	assert.Equal(t, 30*time.Second, cfg.Timeline.BackoffMax)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "Local", cfg.Timezone)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vipertrack.yaml")
	content := `
timezone: Europe/Berlin
tracking:
  bucket_duration: 5m
  queue_capacity: 128
timeline:
  max_attempts: 2
labels:
  watch: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.Tracking.BucketDuration)
	assert.Equal(t, 128, cfg.Tracking.QueueCapacity)
	assert.Equal(t, 2, cfg.Timeline.MaxAttempts)
	assert.False(t, cfg.Labels.Watch)

	// Unset keys keep their defaults.
	assert.Equal(t, 500*time.Millisecond, cfg.Timeline.BackoffBase)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero bucket", "tracking:\n  bucket_duration: 0s\n"},
		{"negative queue", "tracking:\n  queue_capacity: -1\n"},
		{"zero attempts", "timeline:\n  max_attempts: 0\n"},
		{"backoff base above max", "timeline:\n  backoff_base: 1m\n  backoff_max: 1s\n"},
		{"zero depth", "labels:\n  max_depth: 0\n"},
		{"unknown log format", "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vipertrack.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VIPERTRACK_TRACKING_QUEUE_CAPACITY", "64")
	t.Setenv("VIPERTRACK_TIMEZONE", "UTC")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Tracking.QueueCapacity)
	assert.Equal(t, "UTC", cfg.Timezone)
}
