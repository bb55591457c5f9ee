package bucket

import (
	"time"

	"github.com/vipertrack/vipertrack/internal/core/event"
	"github.com/vipertrack/vipertrack/internal/util"
)

// DefaultScrollDebounce coalesces scroll events arriving in one physical
// wheel motion into a single logical scroll.
const DefaultScrollDebounce = 300 * time.Millisecond

// Aggregator accumulates classified events into the currently open bucket.
// It is single-writer by contract: only the aggregation loop calls Ingest and
// CloseBucket, so no locking happens on the hot path.
type Aggregator struct {
	bucketDuration time.Duration
	scrollDebounce time.Duration

	open *ActivityBucket

	// Current foreground window and when it gained focus. Carries across
	// bucket boundaries so a window focused at 09:58 still accrues time in
	// the 10:00 bucket.
	focused      *event.WindowContext
	focusedWords []string
	focusedSince time.Time

	lastScroll time.Time
}

// NewAggregator opens the first bucket aligned to the boundary containing now.
func NewAggregator(bucketDuration time.Duration, now time.Time) *Aggregator {
	start := util.GetTimeProvider().AlignToBucket(now, bucketDuration)
	return &Aggregator{
		bucketDuration: bucketDuration,
		scrollDebounce: DefaultScrollDebounce,
		open:           NewActivityBucket(start, bucketDuration),
	}
}

// SetScrollDebounce overrides the scroll coalescing window. Zero disables
// coalescing.
func (a *Aggregator) SetScrollDebounce(d time.Duration) {
	a.scrollDebounce = d
}

// BucketStart returns the start of the currently open bucket.
func (a *Aggregator) BucketStart() time.Time {
	return a.open.Start
}

// BucketEnd returns the boundary at which the open bucket must close.
func (a *Aggregator) BucketEnd() time.Time {
	return a.open.End()
}

// Realign abandons the open bucket's position and opens a fresh bucket at
// the boundary containing now. The focused window carries over; its sample
// accrues from the new bucket's start.
func (a *Aggregator) Realign(now time.Time) {
	start := util.GetTimeProvider().AlignToBucket(now, a.bucketDuration)
	a.open = NewActivityBucket(start, a.bucketDuration)
}

// Ingest folds one classified event into the open bucket. Counters only ever
// grow while the bucket is open; focus changes close the previous window
// sample and start a new one.
func (a *Aggregator) Ingest(ev event.ClassifiedEvent) {
	switch ev.Kind {
	case event.KindWindowFocus:
		a.ingestFocus(ev)
	case event.KindMouseScroll:
		if a.scrollDebounce > 0 && !a.lastScroll.IsZero() && ev.Timestamp.Sub(a.lastScroll) < a.scrollDebounce {
			a.lastScroll = ev.Timestamp
			return
		}
		a.lastScroll = ev.Timestamp
		a.open.Counters[ev.Kind]++
	case event.KindMouseClick:
		a.open.Counters[ev.Kind]++
		a.open.Clicks[ev.Button]++
	default:
		a.open.Counters[ev.Kind]++
	}
}

func (a *Aggregator) ingestFocus(ev event.ClassifiedEvent) {
	a.closeFocusSample(ev.Timestamp)
	window := ev.Window
	a.focused = &window
	a.focusedWords = event.TitleWords(window.Title)
	a.focusedSince = ev.Timestamp
}

// closeFocusSample accounts the time the current window held focus, clamped
// to the open bucket's bounds so sampled durations can never exceed the
// bucket duration.
func (a *Aggregator) closeFocusSample(until time.Time) {
	if a.focused == nil {
		return
	}

	from := a.focusedSince
	if from.Before(a.open.Start) {
		from = a.open.Start
	}
	if until.After(a.open.End()) {
		until = a.open.End()
	}
	if until.After(from) {
		a.open.appendSample(WindowSample{
			Process:  a.focused.Process,
			Title:    a.focused.Title,
			Words:    a.focusedWords,
			Duration: until.Sub(from),
		})
	}
}

// CloseBucket finalizes the open bucket and opens a fresh one aligned to the
// boundary containing now. The returned bucket is immutable from the caller's
// point of view. The currently focused window carries into the new bucket, so
// a focus event landing exactly on a boundary is attributed to the new bucket
// by the pipeline closing before ingesting it.
func (a *Aggregator) CloseBucket(now time.Time) *ActivityBucket {
	closed := a.open

	sampleUntil := now
	if sampleUntil.After(closed.End()) {
		sampleUntil = closed.End()
	}
	a.closeFocusSample(sampleUntil)

	start := util.GetTimeProvider().AlignToBucket(now, a.bucketDuration)
	if !start.After(closed.Start) {
		// Guard against clock stalls: the new bucket always starts at or
		// after the closed one's boundary.
		start = closed.End()
	}
	a.open = NewActivityBucket(start, a.bucketDuration)

	// focusedSince is left untouched: closeFocusSample clamps to the open
	// bucket's start, so carried-over focus accrues from the new boundary.
	return closed
}
