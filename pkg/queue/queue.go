// Package queue buffers enriched events and decides when to deliver them.
//
// Queue is a bounded FIFO that drops its oldest events on overflow.
// Scheduler owns a Queue together with the debounce and backoff timers and
// the shared retry counter, and guarantees at most one delivery in flight.
package queue

import "github.com/jdziat/weblytics-go/pkg/types"

// DefaultCapacity is the maximum number of buffered events.
const DefaultCapacity = 500

// Queue is a bounded, ordered event buffer. Overflow evicts from the head.
// Queue is not safe for concurrent use; Scheduler serialises access.
type Queue struct {
	events   []types.Event
	capacity int
}

// New returns an empty queue. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Push appends ev at the tail and returns how many events were evicted
// from the head to make room.
func (q *Queue) Push(ev types.Event) int {
	q.events = append(q.events, ev)
	return q.trim()
}

// PushFront puts batch back at the head, preserving its order, and
// returns how many events were evicted from the head.
func (q *Queue) PushFront(batch []types.Event) int {
	if len(batch) == 0 {
		return 0
	}
	merged := make([]types.Event, 0, len(batch)+len(q.events))
	merged = append(merged, batch...)
	merged = append(merged, q.events...)
	q.events = merged
	return q.trim()
}

// Take removes and returns up to n events from the head.
func (q *Queue) Take(n int) []types.Event {
	if n <= 0 || len(q.events) == 0 {
		return nil
	}
	if n > len(q.events) {
		n = len(q.events)
	}
	batch := make([]types.Event, n)
	copy(batch, q.events[:n])
	q.events = append(q.events[:0], q.events[n:]...)
	return batch
}

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.events) }

// Capacity returns the maximum number of buffered events.
func (q *Queue) Capacity() int { return q.capacity }

// Clear drops every buffered event and returns how many there were.
func (q *Queue) Clear() int {
	n := len(q.events)
	q.events = nil
	return n
}

// Snapshot returns a copy of the buffered events in order.
func (q *Queue) Snapshot() []types.Event {
	return append([]types.Event(nil), q.events...)
}

func (q *Queue) trim() int {
	over := len(q.events) - q.capacity
	if over <= 0 {
		return 0
	}
	clear(q.events[:over])
	q.events = q.events[over:]
	return over
}
