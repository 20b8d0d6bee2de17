package sim

import (
	"container/heap"
	"sync"
)

// EventQueue is a queue of events ordered by the time of events. Events
// scheduled for the same time are popped in the order they were pushed.
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

// EventQueueImpl provides a thread-safe event queue.
type EventQueueImpl struct {
	sync.Mutex
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates and returns a newly created EventQueue.
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make(eventHeap, 0)
	heap.Init(&q.events)
	return q
}

// Push adds an event to the event queue, assigning the next sequence number
// to break ties among same-time events.
func (q *EventQueueImpl) Push(evt Event) {
	q.Lock()
	heap.Push(&q.events, queuedEvent{evt: evt, seq: q.nextSeq})
	q.nextSeq++
	q.Unlock()
}

// Pop returns the next earliest event. Cancelled events are dropped.
func (q *EventQueueImpl) Pop() Event {
	q.Lock()
	defer q.Unlock()

	q.dropCancelled()
	if q.events.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.events).(queuedEvent).evt
}

// Len returns the number of live events in the queue.
func (q *EventQueueImpl) Len() int {
	q.Lock()
	defer q.Unlock()

	q.dropCancelled()

	return q.events.Len()
}

// Peek returns the event in front of the queue without removing it from the
// queue. Cancelled events are dropped.
func (q *EventQueueImpl) Peek() Event {
	q.Lock()
	defer q.Unlock()

	q.dropCancelled()
	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0].evt
}

// dropCancelled removes cancelled events sitting at the front of the queue.
// Cancelled events buried deeper are removed when they surface.
func (q *EventQueueImpl) dropCancelled() {
	for q.events.Len() > 0 && q.events[0].evt.Cancelled() {
		heap.Pop(&q.events)
	}
}

type queuedEvent struct {
	evt Event
	seq uint64
}

type eventHeap []queuedEvent

// Len returns the length of the event queue.
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event, breaking ties by insertion order.
func (h eventHeap) Less(i, j int) bool {
	if h[i].evt.Time() != h[j].evt.Time() {
		return h[i].evt.Time() < h[j].evt.Time()
	}
	return h[i].seq < h[j].seq
}

// Swap changes the position of two events in the event queue.
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue.
func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(queuedEvent))
}

// Pop removes and returns the next event to happen.
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	event := old[n-1]
	*h = old[0 : n-1]
	return event
}
