package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vipertrack/vipertrack/internal/core/bucket"
	"github.com/vipertrack/vipertrack/internal/core/event"
	"github.com/vipertrack/vipertrack/internal/core/label"
	"github.com/vipertrack/vipertrack/internal/timeline"
	"github.com/vipertrack/vipertrack/internal/util"
)

const shutdownFlushTimeout = 10 * time.Second

// maxCatchUpBuckets bounds how many boundaries the loop crosses one bucket at
// a time when an event's timestamp is ahead of the open bucket. Past that the
// aggregator realigns directly, so a bogus far-future timestamp in a replay
// trace cannot grind through millions of empty buckets.
const maxCatchUpBuckets = 8

// Config tunes the aggregation loop.
type Config struct {
	BucketDuration time.Duration
	QueueCapacity  int
	ScrollDebounce time.Duration
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		BucketDuration: time.Minute,
		QueueCapacity:  4096,
		ScrollDebounce: bucket.DefaultScrollDebounce,
	}
}

// Stats exposes pipeline counters, safe for concurrent reads.
type Stats struct {
	Submitted     atomic.Uint64
	BucketsClosed atomic.Uint64
	BucketsIdle   atomic.Uint64
}

// Pipeline owns the full event path: capture callbacks submit raw events,
// a single aggregation goroutine classifies nothing twice, folds events into
// the open bucket, closes buckets on wall-clock boundaries, resolves labels
// against the current registry snapshot, and hands records to the writer.
// Submit is safe from any goroutine; everything downstream of the queue runs
// on the Run goroutine only.
type Pipeline struct {
	cfg      Config
	queue    *eventQueue
	agg      *bucket.Aggregator
	registry *label.Registry
	engine   *label.Engine
	writer   *timeline.Writer
	stats    Stats

	// now is swapped out in tests.
	now func() time.Time
}

// New assembles a pipeline. The first bucket opens aligned to the boundary
// containing the current time.
func New(cfg Config, registry *label.Registry, writer *timeline.Writer) *Pipeline {
	if cfg.BucketDuration <= 0 {
		cfg.BucketDuration = time.Minute
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 4096
	}

	p := &Pipeline{
		cfg:      cfg,
		queue:    newEventQueue(cfg.QueueCapacity),
		registry: registry,
		engine:   label.NewEngine(),
		writer:   writer,
		now:      time.Now,
	}
	p.agg = bucket.NewAggregator(cfg.BucketDuration, p.now())
	p.agg.SetScrollDebounce(cfg.ScrollDebounce)
	return p
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() *Stats {
	return &p.stats
}

// Dropped returns how many events the intake queue evicted under pressure.
func (p *Pipeline) Dropped() uint64 {
	return p.queue.Dropped()
}

// Submit classifies a raw event and enqueues it. Never blocks; under
// sustained overload the oldest queued events are dropped.
func (p *Pipeline) Submit(raw event.RawEvent) {
	if raw.Timestamp.IsZero() {
		raw.Timestamp = p.now()
	}
	p.queue.Push(event.Classify(raw))
	p.stats.Submitted.Add(1)
}

// Run drives aggregation until ctx is cancelled, then drains the queue,
// flushes the partial bucket, and replays any spilled records. Run returns
// nil on a clean shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	timer := time.NewTimer(p.untilBoundary())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return nil

		case <-p.queue.notify:
			p.drainQueue(ctx)
			resetTimer(timer, p.untilBoundary())

		case <-timer.C:
			if now := p.now(); !now.Before(p.agg.BucketEnd()) {
				p.closeBucket(ctx, now)
			}
			timer.Reset(p.untilBoundary())
		}
	}
}

func (p *Pipeline) untilBoundary() time.Duration {
	d := p.agg.BucketEnd().Sub(p.now())
	if d < 0 {
		d = 0
	}
	return d
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

// drainQueue ingests every queued event, closing buckets first whenever an
// event's timestamp has crossed the open bucket's boundary. An event landing
// exactly on a boundary therefore counts toward the new bucket.
func (p *Pipeline) drainQueue(ctx context.Context) {
	for {
		ev, ok := p.queue.Pop()
		if !ok {
			return
		}
		p.advanceTo(ctx, ev.Timestamp)
		p.agg.Ingest(ev)
	}
}

// advanceTo closes buckets until the open bucket covers ts. A timestamp more
// than maxCatchUpBuckets ahead closes the open bucket once and realigns the
// aggregator instead of walking every boundary in between.
func (p *Pipeline) advanceTo(ctx context.Context, ts time.Time) {
	if ts.Before(p.agg.BucketEnd()) {
		return
	}
	if ts.Sub(p.agg.BucketEnd()) >= maxCatchUpBuckets*p.cfg.BucketDuration {
		p.closeBucket(ctx, p.agg.BucketEnd())
		from := p.agg.BucketStart()
		p.agg.Realign(ts)
		util.LogWarnf("event stream jumped from %s to %s, realigning past the gap",
			from.Format(time.RFC3339), ts.Format(time.RFC3339))
		return
	}
	for !ts.Before(p.agg.BucketEnd()) {
		p.closeBucket(ctx, p.agg.BucketEnd())
	}
}

// closeBucket finalizes the open bucket, resolves its labels against the
// registry snapshot current at close time, and writes the record. Idle
// buckets produce no record.
func (p *Pipeline) closeBucket(ctx context.Context, now time.Time) {
	closed := p.agg.CloseBucket(now)
	p.stats.BucketsClosed.Add(1)

	if !closed.HasActivity() {
		p.stats.BucketsIdle.Add(1)
		return
	}

	snap := p.registry.Snapshot()
	active := p.engine.Resolve(closed, snap)
	if err := p.writer.Write(ctx, closed, active, snap.Generation); err != nil {
		util.LogErrorf("timeline write for bucket %s failed: %v", closed.Start.Format(time.RFC3339), err)
	}
}

// shutdown drains remaining events, flushes the partial bucket, and gives the
// writer a bounded window to replay its spill backlog.
func (p *Pipeline) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	p.drainQueue(ctx)
	p.closeBucket(ctx, p.now())
	if err := p.writer.Flush(ctx); err != nil {
		util.LogWarnf("spill replay incomplete at shutdown: %v", err)
	}

	if dropped := p.queue.Dropped(); dropped > 0 {
		util.LogWarnf("pipeline dropped %d events under queue pressure", dropped)
	}
}
