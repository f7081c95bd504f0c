package search

import (
	"sync"

	"github.com/Schaudge/HMMER/internal/model"
)

// HitCollector is an ordered multiset of scored hits keyed by
// (PrimaryKey desc, SecondaryKey desc), shared across all threads.
// It is kept as a binary max-heap — the same bubble-up/bubble-down
// shape as an ordinary priority queue — rather than accumulate-then-
// sort-at-drain; either is a valid reading of spec.md §9 ("the design
// does not require an incrementally sorted structure"), and the heap
// keeps Add O(log n) without a separate sort pass at drain time.
type HitCollector struct {
	mu    sync.Mutex
	items []model.Hit
}

func NewHitCollector() *HitCollector {
	return &HitCollector{}
}

// Add inserts hit and restores the heap property.
func (c *HitCollector) Add(hit model.Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, hit)
	c.bubbleUp(len(c.items) - 1)
}

// Len reports the number of hits currently held.
func (c *HitCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Drain destructively empties the collector and returns its contents
// sorted (PrimaryKey desc, SecondaryKey desc). Called only at search
// end by the main thread, once all worker threads are quiescent.
func (c *HitCollector) Drain() []model.Hit {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Hit, 0, len(c.items))
	for len(c.items) > 0 {
		out = append(out, c.popLocked())
	}
	c.items = nil
	return out
}

func (c *HitCollector) popLocked() model.Hit {
	top := c.items[0]
	last := len(c.items) - 1
	c.items[0] = c.items[last]
	c.items = c.items[:last]
	if len(c.items) > 0 {
		c.bubbleDown(0)
	}
	return top
}

func (c *HitCollector) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if model.HigherThan(c.items[i], c.items[parent]) {
			c.items[i], c.items[parent] = c.items[parent], c.items[i]
			i = parent
		} else {
			break
		}
	}
}

func (c *HitCollector) bubbleDown(i int) {
	for {
		left, right := 2*i+1, 2*i+2
		largest := i
		if left < len(c.items) && model.HigherThan(c.items[left], c.items[largest]) {
			largest = left
		}
		if right < len(c.items) && model.HigherThan(c.items[right], c.items[largest]) {
			largest = right
		}
		if largest == i {
			return
		}
		c.items[i], c.items[largest] = c.items[largest], c.items[i]
		i = largest
	}
}

// HitPool is a free list of empty hit cells, mirroring BackendPool's
// shape: a back-end thread borrows a cell, copies the pipeline's hit
// into it, and returns it the moment the value has been copied into
// the collector.
type HitPool struct {
	mu   sync.Mutex
	free []*model.Hit
}

func NewHitPool() *HitPool {
	return &HitPool{}
}

func (p *HitPool) Get() *model.Hit {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return &model.Hit{}
	}
	h := p.free[n-1]
	p.free = p.free[:n-1]
	*h = model.Hit{}
	return h
}

func (p *HitPool) Put(h *model.Hit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, h)
}
