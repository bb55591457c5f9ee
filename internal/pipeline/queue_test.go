package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vipertrack/vipertrack/internal/core/event"
)

func queuedEvent(seq int) event.ClassifiedEvent {
	return event.ClassifiedEvent{
		Kind:      event.KindCharKey,
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, seq, time.UTC),
	}
}

func TestQueueFIFO(t *testing.T) {
	q := newEventQueue(8)
	for i := 0; i < 5; i++ {
		q.Push(queuedEvent(i))
	}
	require.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		ev, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, queuedEvent(i).Timestamp, ev.Timestamp)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Zero(t, q.Dropped())
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := newEventQueue(100)
	for i := 0; i < 150; i++ {
		q.Push(queuedEvent(i))
	}

	assert.Equal(t, 100, q.Len())
	assert.Equal(t, uint64(50), q.Dropped())

	// The 50 oldest were evicted; the head is now event 50.
	ev, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, queuedEvent(50).Timestamp, ev.Timestamp)
}

func TestQueueNotifyNeverBlocks(t *testing.T) {
	q := newEventQueue(2)
	// Nobody is reading the notify channel; pushes must still return.
	for i := 0; i < 10; i++ {
		q.Push(queuedEvent(i))
	}
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(8), q.Dropped())
}
