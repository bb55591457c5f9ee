// Package config provides configuration loading and validation for
// vipertrack.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidBucketDuration = errors.New("bucket duration must be positive")
	ErrInvalidQueueCapacity  = errors.New("queue capacity must be positive")
	ErrInvalidMaxAttempts    = errors.New("write max attempts must be positive")
	ErrInvalidBackoff        = errors.New("backoff base must be positive and not exceed backoff max")
	ErrInvalidMaxDepth       = errors.New("label condition max depth must be positive")
	ErrInvalidLogFormat      = errors.New(`log format must be "text" or "json"`)
)

const (
	configName = ".vipertrack"
	configType = "yaml"
	envPrefix  = "VIPERTRACK"
)

// Config holds all configuration for the tracking daemon and CLI.
type Config struct {
	Tracking TrackingConfig `mapstructure:"tracking"`
	Labels   LabelsConfig   `mapstructure:"labels"`
	Timeline TimelineConfig `mapstructure:"timeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Timezone string         `mapstructure:"timezone"`
}

// TrackingConfig tunes the capture and aggregation path.
type TrackingConfig struct {
	BucketDuration time.Duration `mapstructure:"bucket_duration"`
	QueueCapacity  int           `mapstructure:"queue_capacity"`
	ScrollDebounce time.Duration `mapstructure:"scroll_debounce"`
}

// LabelsConfig locates the label definitions and bounds condition trees.
type LabelsConfig struct {
	Path     string `mapstructure:"path"`
	MaxDepth int    `mapstructure:"max_depth"`
	Watch    bool   `mapstructure:"watch"`
}

// TimelineConfig tunes persistence and the failure path.
type TimelineConfig struct {
	DatabasePath string        `mapstructure:"database_path"`
	SpillPath    string        `mapstructure:"spill_path"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	BackoffMax   time.Duration `mapstructure:"backoff_max"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file, environment, and defaults. A non-empty
// configPath names the file explicitly; otherwise .vipertrack.yaml is
// searched in the working directory and $HOME. A missing file is not an
// error.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks invariants that cut across fields.
func (c *Config) Validate() error {
	if c.Tracking.BucketDuration <= 0 {
		return ErrInvalidBucketDuration
	}
	if c.Tracking.QueueCapacity <= 0 {
		return ErrInvalidQueueCapacity
	}
	if c.Timeline.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Timeline.BackoffBase <= 0 || (c.Timeline.BackoffMax > 0 && c.Timeline.BackoffBase > c.Timeline.BackoffMax) {
		return ErrInvalidBackoff
	}
	if c.Labels.MaxDepth <= 0 {
		return ErrInvalidMaxDepth
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

func applyDefaults(viperCfg *viper.Viper) {
	dataDir := defaultDataDir()

	viperCfg.SetDefault("timezone", "Local")

	viperCfg.SetDefault("tracking.bucket_duration", time.Minute)
	viperCfg.SetDefault("tracking.queue_capacity", 4096)
	viperCfg.SetDefault("tracking.scroll_debounce", 300*time.Millisecond)

	viperCfg.SetDefault("labels.path", filepath.Join(dataDir, "labels.json"))
	viperCfg.SetDefault("labels.max_depth", 16)
	viperCfg.SetDefault("labels.watch", true)

	viperCfg.SetDefault("timeline.database_path", filepath.Join(dataDir, "timeline.db"))
	viperCfg.SetDefault("timeline.spill_path", filepath.Join(dataDir, "spill.jsonl"))
	viperCfg.SetDefault("timeline.max_attempts", 5)
	viperCfg.SetDefault("timeline.backoff_base", 500*time.Millisecond)
	viperCfg.SetDefault("timeline.backoff_max", 30*time.Second)

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")
	viperCfg.SetDefault("logging.file", "")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vipertrack"
	}
	return filepath.Join(home, ".vipertrack")
}
