package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vipertrack/vipertrack/internal/config"
	"github.com/vipertrack/vipertrack/internal/util"
)

var (
	// Logging related
	debug bool

	// Config file path, empty means search defaults
	configPath string

	// Output related
	timezone string

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "vipertrack",
		Short: "Activity tracking and label matching engine",
		Long: `vipertrack aggregates user input activity into wall-clock time buckets,
matches user-defined label rules against each bucket, and records the
resulting timeline locally.

Examples:
  vipertrack track                                  # Track using a synthetic demo source
  vipertrack track --replay trace.jsonl             # Replay a recorded event trace
  vipertrack query --from 2024-03-01 --label coding # Query the recorded timeline
  vipertrack query --output summary                 # Aggregate report
  vipertrack labels list                            # Show configured labels`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default searches .vipertrack.yaml in . and $HOME)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone setting (e.g., Europe/Berlin, UTC); overrides config")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")

	rootCmd.PersistentPreRunE = setup
}

// setup loads configuration and initializes logging and the time provider
// before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	if timezone != "" {
		cfg.Timezone = timezone
	}

	logLevel := cfg.Logging.Level
	if debug {
		logLevel = "debug"
	}
	logFile := cfg.Logging.File
	if logFile != "" {
		logFile = expandPath(logFile)
		if err := ensureDir(filepath.Dir(logFile)); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	util.InitLogger(logLevel, logFile, cfg.Logging.Format, debug)
	if err := util.InitializeTimeProvider(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
