package search

import (
	"sync"

	"github.com/Schaudge/HMMER/internal/model"
	"github.com/pkg/errors"
)

// ErrBackendPoolExhausted is the resource-exhaustion error reported to
// the main loop when a bounded BackendPool cannot satisfy a Push
// because MaxEntries has been reached (spec.md §7: "resource
// exhaustion during a search"). A pool with MaxEntries == 0 never
// returns it.
var ErrBackendPoolExhausted = errors.New("search: backend entry pool exhausted")

type backendNode struct {
	entry model.BackendEntry
	next  *backendNode
}

// BackendPool is a free list of backend-queue nodes, avoiding
// allocator pressure in the hot path: a node freed by a back-end
// thread after consuming its entry is handed straight to the next
// front-end thread that needs one.
type BackendPool struct {
	mu         sync.Mutex
	free       *backendNode
	allocated  int
	maxEntries int // 0 = unbounded
}

func NewBackendPool(maxEntries int) *BackendPool {
	return &BackendPool{maxEntries: maxEntries}
}

func (p *BackendPool) get() (*backendNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.free != nil {
		n := p.free
		p.free = n.next
		n.next = nil
		return n, nil
	}
	if p.maxEntries > 0 && p.allocated >= p.maxEntries {
		return nil, ErrBackendPoolExhausted
	}
	p.allocated++
	return &backendNode{}, nil
}

func (p *BackendPool) put(n *backendNode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n.entry = model.BackendEntry{}
	n.next = p.free
	p.free = n
}

// BackendQueue is the FIFO list of BackendEntry values produced by
// front-end threads and consumed by back-end threads.
type BackendQueue struct {
	mu         sync.Mutex
	head, tail *backendNode
	depth      int
	pool       *BackendPool
}

func NewBackendQueue(pool *BackendPool) *BackendQueue {
	return &BackendQueue{pool: pool}
}

// Push enqueues entry at the tail. Returns ErrBackendPoolExhausted if
// the backing pool is bounded and full.
func (q *BackendQueue) Push(entry model.BackendEntry) error {
	n, err := q.pool.get()
	if err != nil {
		return err
	}
	n.entry = entry

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.depth++
	return nil
}

// Pop dequeues the head entry, returning its node to the pool.
func (q *BackendQueue) Pop() (model.BackendEntry, bool) {
	q.mu.Lock()
	n := q.head
	if n == nil {
		q.mu.Unlock()
		return model.BackendEntry{}, false
	}
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.depth--
	q.mu.Unlock()

	entry := n.entry
	q.pool.put(n)
	return entry, true
}

func (q *BackendQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}

func (q *BackendQueue) IsEmpty() bool {
	return q.Depth() == 0
}
