package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vipertrack/vipertrack/internal/core/bucket"
	"github.com/vipertrack/vipertrack/internal/util"
)

// Sink is the external persistence collaborator. It must offer at-least-once
// durability once Persist returns a nil error. Errors should be classified
// with TransientError/PermanentError; unclassified errors are treated as
// transient so a sink bug never silently discards records.
type Sink interface {
	Persist(ctx context.Context, rec Record) (int64, error)
}

// DeadLetterSink records a permanently failed record together with its error
// context.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, rec Record, cause error) error
}

// WriterConfig bounds the retry behavior.
type WriterConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultWriterConfig matches the defaults in the config package.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxAttempts: 5,
		BackoffBase: 500 * time.Millisecond,
		BackoffMax:  30 * time.Second,
	}
}

// WriterStats exposes write outcomes for inspection; all counters are safe to
// read concurrently.
type WriterStats struct {
	Written      atomic.Uint64
	Spilled      atomic.Uint64
	Replayed     atomic.Uint64
	DeadLettered atomic.Uint64
}

// Writer assembles timeline records and moves them into the sink, keeping
// bucket order under sink failures. The flow per record: replay anything in
// the spill queue first, then persist the new record; a transient failure
// that survives all retries sends the record to the tail of the spill queue
// rather than reordering, a permanent failure dead-letters it and the
// pipeline moves on.
type Writer struct {
	sink  Sink
	dead  DeadLetterSink
	spill *SpillQueue
	cfg   WriterConfig
	stats WriterStats

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWriter creates a writer. The spill queue may hold records recovered
// from a previous run; they drain ahead of new records. dead may be nil, in
// which case permanently failed records are only logged.
func NewWriter(sink Sink, dead DeadLetterSink, spill *SpillQueue, cfg WriterConfig) *Writer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Writer{
		sink:  sink,
		dead:  dead,
		spill: spill,
		cfg:   cfg,
		sleep: sleepCtx,
	}
}

// Stats returns the writer's counters.
func (w *Writer) Stats() *WriterStats {
	return &w.stats
}

// Write builds the record for a closed bucket and hands it to the sink.
// A nil error means the record is either persisted, safely spilled, or
// dead-lettered; the caller never needs to retry.
func (w *Writer) Write(ctx context.Context, b *bucket.ActivityBucket, activeLabels []string, generation int64) error {
	return w.WriteRecord(ctx, NewRecord(b, activeLabels, generation))
}

// WriteRecord persists an already-assembled record.
func (w *Writer) WriteRecord(ctx context.Context, rec Record) error {
	if err := w.replaySpilled(ctx); err != nil {
		// The sink is still down: queue behind the spilled records so
		// ordering holds once it comes back.
		if spillErr := w.spill.Append(rec); spillErr != nil {
			return fmt.Errorf("sink unavailable and spill failed: %w", errors.Join(err, spillErr))
		}
		w.stats.Spilled.Add(1)
		util.LogWarnf("timeline record %s spilled behind %d pending: %v",
			rec.BucketStart.Format(time.RFC3339), w.spill.Len(), err)
		return nil
	}

	return w.persistOrDivert(ctx, rec)
}

// Flush replays any spilled records without writing a new one. Called on
// shutdown so a recovered sink drains the backlog.
func (w *Writer) Flush(ctx context.Context) error {
	return w.replaySpilled(ctx)
}

func (w *Writer) replaySpilled(ctx context.Context) error {
	for {
		rec, ok := w.spill.Peek()
		if !ok {
			return nil
		}
		if err := w.persistWithRetry(ctx, rec); err != nil {
			var writeErr *WriteError
			if errors.As(err, &writeErr) && !writeErr.Transient {
				// Permanently rejected while replaying: dead-letter and keep
				// draining the rest.
				w.deadLetter(ctx, rec, err)
				if popErr := w.spill.Pop(); popErr != nil {
					return popErr
				}
				continue
			}
			return err
		}
		w.stats.Replayed.Add(1)
		if err := w.spill.Pop(); err != nil {
			return err
		}
	}
}

func (w *Writer) persistOrDivert(ctx context.Context, rec Record) error {
	err := w.persistWithRetry(ctx, rec)
	if err == nil {
		w.stats.Written.Add(1)
		return nil
	}

	var writeErr *WriteError
	if errors.As(err, &writeErr) && !writeErr.Transient {
		w.deadLetter(ctx, rec, err)
		return nil
	}

	if spillErr := w.spill.Append(rec); spillErr != nil {
		return fmt.Errorf("retries exhausted and spill failed: %w", errors.Join(err, spillErr))
	}
	w.stats.Spilled.Add(1)
	util.LogWarnf("timeline record %s spilled after %d attempts: %v",
		rec.BucketStart.Format(time.RFC3339), w.cfg.MaxAttempts, err)
	return nil
}

// persistWithRetry attempts the sink write with bounded exponential backoff.
// Returns nil on success, a permanent *WriteError immediately, or the last
// transient error once attempts are exhausted.
func (w *Writer) persistWithRetry(ctx context.Context, rec Record) error {
	var lastErr error
	backoff := w.cfg.BackoffBase

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		_, err := w.sink.Persist(ctx, rec)
		if err == nil {
			return nil
		}
		lastErr = err

		var writeErr *WriteError
		if errors.As(err, &writeErr) && !writeErr.Transient {
			return err
		}

		if attempt == w.cfg.MaxAttempts {
			break
		}
		if err := w.sleep(ctx, backoff); err != nil {
			return errors.Join(lastErr, err)
		}
		backoff *= 2
		if w.cfg.BackoffMax > 0 && backoff > w.cfg.BackoffMax {
			backoff = w.cfg.BackoffMax
		}
	}
	return lastErr
}

func (w *Writer) deadLetter(ctx context.Context, rec Record, cause error) {
	w.stats.DeadLettered.Add(1)
	util.LogErrorf("timeline record %s dead-lettered: %v", rec.BucketStart.Format(time.RFC3339), cause)
	if w.dead == nil {
		return
	}
	if err := w.dead.DeadLetter(ctx, rec, cause); err != nil {
		util.LogErrorf("dead-letter write failed for record %s: %v", rec.BucketStart.Format(time.RFC3339), err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
