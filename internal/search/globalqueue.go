package search

import (
	"sync"

	"github.com/Schaudge/HMMER/internal/model"
)

// chunkNode is one element of GlobalQueue's linked list. Chunks arrive
// one at a time from the master and are consumed whole or split at the
// head — they never need random access, so a linked list (rather than
// a slice/ring buffer) is the natural fit.
type chunkNode struct {
	span model.Range
	next *chunkNode
}

// GlobalQueue is the linked list of coarse work chunks received from
// the master, drained into per-thread WorkRanges on refill.
type GlobalQueue struct {
	mu         sync.Mutex
	head, tail *chunkNode
	depthIDs   uint64
}

func NewGlobalQueue() *GlobalQueue {
	return &GlobalQueue{}
}

// Push appends a chunk to the tail.
func (q *GlobalQueue) Push(span model.Range) {
	if span.Empty() {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	n := &chunkNode{span: span}
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.depthIDs += span.Len()
}

// Pull detaches the head chunk. If the head is larger than maxIDs, it
// is split in place and the remainder is re-pushed as the new head.
func (q *GlobalQueue) Pull(maxIDs uint64) (model.Range, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == nil {
		return model.Range{}, false
	}
	n := q.head
	span := n.span.Len()
	if maxIDs == 0 || span <= maxIDs {
		q.head = n.next
		if q.head == nil {
			q.tail = nil
		}
		q.depthIDs -= span
		return n.span, true
	}

	taken := model.Range{Start: n.span.Start, End: n.span.Start + model.ObjectID(maxIDs)}
	n.span.Start = taken.End
	q.depthIDs -= maxIDs
	return taken, true
}

// DepthIDs reports the total number of IDs still queued.
func (q *GlobalQueue) DepthIDs() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depthIDs
}

func (q *GlobalQueue) IsEmpty() bool {
	return q.DepthIDs() == 0
}
