package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipertrack/vipertrack/internal/core/event"
	"github.com/vipertrack/vipertrack/internal/util"
)

func init() {
	util.InitializeTimeProvider("UTC")
}

func baseTime(t *testing.T) time.Time {
	t.Helper()
	base, err := time.Parse(time.RFC3339, "2025-03-10T10:00:00Z")
	require.NoError(t, err)
	return base
}

func keyEvent(kind event.EventKind, ts time.Time) event.ClassifiedEvent {
	return event.ClassifiedEvent{Kind: kind, Timestamp: ts}
}

func focusEvent(process, title string, ts time.Time) event.ClassifiedEvent {
	return event.ClassifiedEvent{
		Kind:      event.KindWindowFocus,
		Timestamp: ts,
		Window:    event.WindowContext{Process: process, Title: title},
	}
}

func TestAggregatorCountsAndDominantWindow(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	agg.Ingest(focusEvent("editor.exe", "main.go - editor", base))
	agg.Ingest(keyEvent(event.KindCharKey, base.Add(1*time.Second)))
	agg.Ingest(keyEvent(event.KindCharKey, base.Add(2*time.Second)))
	agg.Ingest(keyEvent(event.KindCharKey, base.Add(3*time.Second)))
	agg.Ingest(keyEvent(event.KindArrowKey, base.Add(4*time.Second)))

	closed := agg.CloseBucket(base.Add(time.Minute))

	assert.Equal(t, 3, closed.Counter(event.KindCharKey))
	assert.Equal(t, 1, closed.Counter(event.KindArrowKey))
	assert.Equal(t, 0, closed.Counter(event.KindSpecialKey))
	assert.Equal(t, 4, closed.KeyTotal())

	dominant, ok := closed.DominantWindow()
	require.True(t, ok)
	assert.Equal(t, "editor.exe", dominant.Process)
	assert.Equal(t, time.Minute, dominant.Duration)
}

func TestAggregatorBucketAlignment(t *testing.T) {
	unaligned := baseTime(t).Add(23 * time.Second)
	agg := NewAggregator(time.Minute, unaligned)

	assert.Equal(t, baseTime(t), agg.BucketStart())
	assert.Equal(t, baseTime(t).Add(time.Minute), agg.BucketEnd())
}

func TestAggregatorCountersResetAfterClose(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	agg.Ingest(keyEvent(event.KindCharKey, base.Add(time.Second)))
	closed := agg.CloseBucket(base.Add(time.Minute))
	assert.Equal(t, 1, closed.Counter(event.KindCharKey))

	next := agg.CloseBucket(base.Add(2 * time.Minute))
	assert.Equal(t, 0, next.Counter(event.KindCharKey))
	assert.False(t, next.HasActivity())
}

func TestAggregatorWindowSamplesNeverExceedBucketDuration(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	agg.Ingest(focusEvent("editor.exe", "editor", base.Add(5*time.Second)))
	agg.Ingest(focusEvent("browser.exe", "browser", base.Add(30*time.Second)))
	agg.Ingest(focusEvent("editor.exe", "editor", base.Add(50*time.Second)))

	closed := agg.CloseBucket(base.Add(time.Minute))
	assert.LessOrEqual(t, closed.SampledDuration(), time.Minute)
	assert.Equal(t, 55*time.Second, closed.SampledDuration())

	dominant, ok := closed.DominantWindow()
	require.True(t, ok)
	// editor: 25s + 10s accumulated over two samples beats browser's 20s.
	assert.Equal(t, "editor.exe", dominant.Process)
	assert.Equal(t, 35*time.Second, dominant.Duration)
}

func TestAggregatorFocusCarriesAcrossBuckets(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	agg.Ingest(focusEvent("editor.exe", "editor", base.Add(40*time.Second)))
	first := agg.CloseBucket(base.Add(time.Minute))
	second := agg.CloseBucket(base.Add(2 * time.Minute))

	require.Len(t, first.Samples, 1)
	assert.Equal(t, 20*time.Second, first.Samples[0].Duration)

	require.Len(t, second.Samples, 1)
	assert.Equal(t, "editor.exe", second.Samples[0].Process)
	assert.Equal(t, time.Minute, second.Samples[0].Duration)
}

func TestAggregatorDominantWindowUnknownWithoutFocus(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	agg.Ingest(keyEvent(event.KindCharKey, base.Add(time.Second)))
	closed := agg.CloseBucket(base.Add(time.Minute))

	dominant, ok := closed.DominantWindow()
	assert.False(t, ok)
	assert.Equal(t, UnknownWindow, dominant)
}

func TestAggregatorScrollDebounce(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	scroll := func(offset time.Duration) event.ClassifiedEvent {
		return event.ClassifiedEvent{Kind: event.KindMouseScroll, Timestamp: base.Add(offset)}
	}

	// One wheel motion: bursts 100ms apart collapse into a single scroll.
	agg.Ingest(scroll(0))
	agg.Ingest(scroll(100 * time.Millisecond))
	agg.Ingest(scroll(200 * time.Millisecond))
	// A second motion after the debounce window.
	agg.Ingest(scroll(1 * time.Second))

	closed := agg.CloseBucket(base.Add(time.Minute))
	assert.Equal(t, 2, closed.Counter(event.KindMouseScroll))
}

func TestAggregatorPerButtonClickCounters(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	click := func(button event.MouseButton, offset time.Duration) event.ClassifiedEvent {
		return event.ClassifiedEvent{Kind: event.KindMouseClick, Button: button, Timestamp: base.Add(offset)}
	}

	agg.Ingest(click(event.ButtonLeft, time.Second))
	agg.Ingest(click(event.ButtonLeft, 2*time.Second))
	agg.Ingest(click(event.ButtonRight, 3*time.Second))
	agg.Ingest(click(event.ButtonMiddle, 4*time.Second))

	closed := agg.CloseBucket(base.Add(time.Minute))
	assert.Equal(t, 4, closed.ClickTotal())
	assert.Equal(t, 2, closed.Clicks[event.ButtonLeft])
	assert.Equal(t, 1, closed.Clicks[event.ButtonRight])
	assert.Equal(t, 1, closed.Clicks[event.ButtonMiddle])
}

func TestAggregatorCountersMonotonicWhileOpen(t *testing.T) {
	base := baseTime(t)
	agg := NewAggregator(time.Minute, base)

	previous := 0
	for i := 0; i < 10; i++ {
		agg.Ingest(keyEvent(event.KindCharKey, base.Add(time.Duration(i)*time.Second)))
		current := agg.open.Counter(event.KindCharKey)
		assert.GreaterOrEqual(t, current, previous)
		previous = current
	}
	assert.Equal(t, 10, previous)
}
