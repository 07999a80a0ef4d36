package engine

import (
	"container/heap"
	"slices"
)

// queueEntry is a step together with the key it was queued under.
type queueEntry struct {
	step  Step
	key   QueueKey
	index int // position in the heap, -1 once removed
}

// stepQueue is the ordered set of pending steps of one Thought.
//
// It is a binary heap keyed by QueueKey with index tracking, so the minimum
// can be polled and an arbitrary entry can be removed in O(log n).
//
// stepQueue is not safe for concurrent use. It is owned by a single Thought
// and only mutated from that Thought's goroutine.
type stepQueue struct {
	entries entryHeap
}

func newStepQueue() *stepQueue {
	return &stepQueue{
		entries: make(entryHeap, 0, 64),
	}
}

// Push inserts an entry.
func (q *stepQueue) Push(qe *queueEntry) {
	heap.Push(&q.entries, qe)
}

// PollMin removes and returns the entry with the smallest key.
// Returns (nil, false) if the queue is empty.
func (q *stepQueue) PollMin() (*queueEntry, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	return heap.Pop(&q.entries).(*queueEntry), true
}

// PeekMin returns the entry with the smallest key without removing it.
func (q *stepQueue) PeekMin() (*queueEntry, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	return q.entries[0], true
}

// Remove deletes qe from the queue. Returns false if qe is not queued.
func (q *stepQueue) Remove(qe *queueEntry) bool {
	if qe.index < 0 || qe.index >= len(q.entries) || q.entries[qe.index] != qe {
		return false
	}
	heap.Remove(&q.entries, qe.index)
	return true
}

// Len returns the number of pending entries.
func (q *stepQueue) Len() int {
	return len(q.entries)
}

// Snapshot returns the pending entries in key order.
func (q *stepQueue) Snapshot() []*queueEntry {
	sorted := slices.Clone([]*queueEntry(q.entries))
	slices.SortFunc(sorted, func(a, b *queueEntry) int {
		return a.key.Compare(b.key)
	})
	return sorted
}

// entryHeap implements heap.Interface.
type entryHeap []*queueEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].key.Less(h[j].key) }

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	qe := x.(*queueEntry)
	qe.index = len(*h)
	*h = append(*h, qe)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	qe := old[n-1]
	// Nil out the slot so the backing array does not retain the step.
	old[n-1] = nil
	qe.index = -1
	*h = old[:n-1]
	return qe
}
