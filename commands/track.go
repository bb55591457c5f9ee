package commands

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vipertrack/vipertrack/internal/capture"
	"github.com/vipertrack/vipertrack/internal/core/label"
	"github.com/vipertrack/vipertrack/internal/pipeline"
	"github.com/vipertrack/vipertrack/internal/store"
	"github.com/vipertrack/vipertrack/internal/timeline"
	"github.com/vipertrack/vipertrack/internal/util"
)

var (
	replayPath     string
	replayRealtime bool
	syntheticRate  time.Duration

	trackCmd = &cobra.Command{
		Use:   "track",
		Short: "Run the tracking daemon",
		Long: `track runs the full capture pipeline: events are classified, aggregated
into time buckets, matched against label rules, and written to the local
timeline database. Stops cleanly on SIGINT/SIGTERM, flushing the partial
bucket.`,
		RunE: runTrack,
	}
)

func init() {
	trackCmd.Flags().StringVar(&replayPath, "replay", "",
		"Replay a JSONL event trace instead of capturing live input")
	trackCmd.Flags().BoolVar(&replayRealtime, "replay-realtime", false,
		"Honor recorded gaps between replayed events")
	trackCmd.Flags().DurationVar(&syntheticRate, "synthetic-interval", 200*time.Millisecond,
		"Event interval for the synthetic demo source")

	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(expandPath(cfg.Timeline.DatabasePath))
	if err != nil {
		return fmt.Errorf("open timeline store: %w", err)
	}
	defer db.Close()

	spillPath := expandPath(cfg.Timeline.SpillPath)
	if err := ensureDir(filepath.Dir(spillPath)); err != nil {
		return fmt.Errorf("create spill directory: %w", err)
	}
	spill, err := timeline.OpenSpillQueue(spillPath)
	if err != nil {
		return fmt.Errorf("open spill queue: %w", err)
	}

	writer := timeline.NewWriter(db, db, spill, timeline.WriterConfig{
		MaxAttempts: cfg.Timeline.MaxAttempts,
		BackoffBase: cfg.Timeline.BackoffBase,
		BackoffMax:  cfg.Timeline.BackoffMax,
	})

	registry := label.NewRegistry(cfg.Labels.MaxDepth)
	labelsPath := expandPath(cfg.Labels.Path)
	if labels, err := label.LoadFile(labelsPath); err != nil {
		util.LogWarnf("labels file %s not loaded, starting with no labels: %v", labelsPath, err)
	} else if _, err := registry.Load(labels); err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	pipe := pipeline.New(pipeline.Config{
		BucketDuration: cfg.Tracking.BucketDuration,
		QueueCapacity:  cfg.Tracking.QueueCapacity,
		ScrollDebounce: cfg.Tracking.ScrollDebounce,
	}, registry, writer)

	source := buildSource()

	if cfg.Labels.Watch {
		watcher, err := label.NewWatcher(registry, labelsPath)
		if err != nil {
			util.LogWarnf("labels file watcher unavailable: %v", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	sourceErr := make(chan error, 1)
	go func() {
		err := source.Run(ctx, pipe.Submit)
		if err != nil && ctx.Err() == nil {
			sourceErr <- err
		}
		// A finished trace stops the whole run.
		stop()
	}()

	util.LogInfof("tracking started, bucket duration %s", cfg.Tracking.BucketDuration)
	if err := pipe.Run(ctx); err != nil {
		return err
	}

	select {
	case err := <-sourceErr:
		return fmt.Errorf("capture source: %w", err)
	default:
	}

	stats := pipe.Stats()
	util.LogInfof("tracking stopped: %d events, %d buckets closed, %d dropped",
		stats.Submitted.Load(), stats.BucketsClosed.Load(), pipe.Dropped())
	return nil
}

func buildSource() capture.Source {
	if replayPath != "" {
		return capture.NewReplaySource(expandPath(replayPath), replayRealtime)
	}
	return capture.NewSyntheticSource(syntheticRate, time.Now().UnixNano())
}
