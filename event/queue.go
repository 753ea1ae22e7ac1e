package event

import "container/heap"

// queued is a heap entry. seq records insertion order so that events with
// equal times pop first-in, first-out.
type queued struct {
	ev  Event
	seq uint64
}

// eventHeap implements heap.Interface ordered by (time, seq).
type eventHeap []queued

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.Time != h[j].ev.Time {
		return h[i].ev.Time < h[j].ev.Time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queued))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the pending-event list. Events pop in ascending time; events
// with identical times pop in the order they were pushed.
type Queue struct {
	h   eventHeap
	seq uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push schedules an event. Any time and kind is accepted.
func (q *Queue) Push(ev Event) {
	heap.Push(&q.h, queued{ev: ev, seq: q.seq})
	q.seq++
}

// Pop removes and returns the earliest event. ok is false when the queue
// is empty.
func (q *Queue) Pop() (ev Event, ok bool) {
	if len(q.h) == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.h).(queued).ev, true
}

// Peek returns the earliest event without removing it.
func (q *Queue) Peek() (Event, bool) {
	if len(q.h) == 0 {
		return Event{}, false
	}
	return q.h[0].ev, true
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.h)
}
