package kb

import "container/heap"

// evictionEntry is one candidate in the eviction priority queue. Entries
// are lazily deleted: an id popped here may already have been removed
// by a direct retraction, in which case the caller simply discards it
// and pops again.
type evictionEntry struct {
	id       string
	priority float64
	seq      uint64
}

// evictionHeap orders ground/skolemized assertion ids so the lowest
// priority, then oldest (lowest seq), pops first.
type evictionHeap []evictionEntry

func (h evictionHeap) Len() int { return len(h) }

func (h evictionHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h evictionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *evictionHeap) Push(x any) {
	*h = append(*h, x.(evictionEntry))
}

func (h *evictionHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// evictionQueue wraps evictionHeap with the heap.Interface plumbing so
// callers deal in evictionEntry values, not container/heap mechanics.
type evictionQueue struct {
	h evictionHeap
}

func newEvictionQueue() *evictionQueue {
	return &evictionQueue{h: evictionHeap{}}
}

func (q *evictionQueue) push(e evictionEntry) {
	heap.Push(&q.h, e)
}

// pop removes and returns the next candidate, or false if empty.
func (q *evictionQueue) pop() (evictionEntry, bool) {
	if q.h.Len() == 0 {
		return evictionEntry{}, false
	}
	return heap.Pop(&q.h).(evictionEntry), true
}

func (q *evictionQueue) len() int { return q.h.Len() }
