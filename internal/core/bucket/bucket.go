package bucket

import (
	"time"

	"github.com/vipertrack/vipertrack/internal/core/event"
)

// UnknownWindow is reported as the dominant window when no focus event has
// ever been observed.
var UnknownWindow = WindowSample{Process: "unknown", Title: "unknown"}

// WindowSample records how long one foreground window held focus within a
// bucket. Samples are kept in focus order; consecutive samples for the same
// window are merged on append.
type WindowSample struct {
	Process  string
	Title    string
	Words    []string
	Duration time.Duration
}

func (s WindowSample) sameWindow(other WindowSample) bool {
	return s.Process == other.Process && s.Title == other.Title
}

// ActivityBucket is the unit of aggregation: per-kind counters plus the
// window focus timeline for one fixed-duration slice of wall-clock time.
// It is mutable only while owned by the aggregator; after CloseBucket it is
// treated as read-only by the label engine and the timeline writer.
type ActivityBucket struct {
	Start    time.Time
	Duration time.Duration

	Counters map[event.EventKind]int
	Clicks   map[event.MouseButton]int
	Samples  []WindowSample
}

// NewActivityBucket creates an empty bucket covering [start, start+duration).
func NewActivityBucket(start time.Time, duration time.Duration) *ActivityBucket {
	return &ActivityBucket{
		Start:    start,
		Duration: duration,
		Counters: make(map[event.EventKind]int),
		Clicks:   make(map[event.MouseButton]int),
	}
}

// End returns the exclusive upper boundary of the bucket.
func (b *ActivityBucket) End() time.Time {
	return b.Start.Add(b.Duration)
}

// Counter returns the count for one event kind.
func (b *ActivityBucket) Counter(kind event.EventKind) int {
	return b.Counters[kind]
}

// KeyTotal is the rollup of all key press kinds.
func (b *ActivityBucket) KeyTotal() int {
	return b.Counters[event.KindCharKey] + b.Counters[event.KindArrowKey] + b.Counters[event.KindSpecialKey]
}

// ClickTotal is the rollup of all mouse button clicks.
func (b *ActivityBucket) ClickTotal() int {
	return b.Counters[event.KindMouseClick]
}

// HasActivity reports whether anything at all was observed in this bucket.
func (b *ActivityBucket) HasActivity() bool {
	for _, count := range b.Counters {
		if count > 0 {
			return true
		}
	}
	return len(b.Samples) > 0
}

// SampledDuration is the total focused time recorded in the bucket. It never
// exceeds the bucket duration.
func (b *ActivityBucket) SampledDuration() time.Duration {
	var total time.Duration
	for _, sample := range b.Samples {
		total += sample.Duration
	}
	return total
}

// DominantWindow returns the window with the most accumulated focus time in
// this bucket. A window focused across several separate samples wins on the
// sum. Returns UnknownWindow with ok=false when no focus was ever observed.
func (b *ActivityBucket) DominantWindow() (WindowSample, bool) {
	if len(b.Samples) == 0 {
		return UnknownWindow, false
	}

	totals := make(map[string]time.Duration, len(b.Samples))
	best := b.Samples[0]
	var bestTotal time.Duration
	for _, sample := range b.Samples {
		key := sample.Process + "\x00" + sample.Title
		totals[key] += sample.Duration
		if totals[key] > bestTotal {
			bestTotal = totals[key]
			best = sample
		}
	}

	result := best
	result.Duration = bestTotal
	return result, true
}

func (b *ActivityBucket) appendSample(sample WindowSample) {
	if sample.Duration <= 0 {
		return
	}
	if n := len(b.Samples); n > 0 && b.Samples[n-1].sameWindow(sample) {
		b.Samples[n-1].Duration += sample.Duration
		return
	}
	b.Samples = append(b.Samples, sample)
}
