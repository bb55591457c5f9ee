package pipeline

import (
	"sync"

	"github.com/vipertrack/vipertrack/internal/core/event"
)

// eventQueue is the bounded hand-off between capture callbacks and the
// aggregation loop. Push never blocks: when the queue is full the oldest
// event is dropped and counted, so a stalled consumer degrades aggregation
// accuracy instead of stalling the capture source.
type eventQueue struct {
	mu      sync.Mutex
	buf     []event.ClassifiedEvent
	head    int
	count   int
	dropped uint64

	// notify carries at most one pending wakeup for the consumer.
	notify chan struct{}
}

func newEventQueue(capacity int) *eventQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &eventQueue{
		buf:    make([]event.ClassifiedEvent, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Push enqueues an event, evicting the oldest one when full.
func (q *eventQueue) Push(ev event.ClassifiedEvent) {
	q.mu.Lock()
	if q.count == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.dropped++
	}
	q.buf[(q.head+q.count)%len(q.buf)] = ev
	q.count++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes the oldest queued event.
func (q *eventQueue) Pop() (event.ClassifiedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return event.ClassifiedEvent{}, false
	}
	ev := q.buf[q.head]
	q.buf[q.head] = event.ClassifiedEvent{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return ev, true
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns how many events were evicted because the queue was full.
func (q *eventQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
