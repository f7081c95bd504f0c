package search

import (
	"sync"

	"github.com/Schaudge/HMMER/internal/model"
)

// WorkRange is a half-open [start, end) span of object IDs owned by
// one thread. start is only ever advanced by the owner via TakeLocal
// (monotonically non-decreasing, except the one-time Reset at search
// start or after a successful steal); end is only ever reduced by a
// thief via Steal (monotonically non-increasing). The split guarantees
// the owner and a thief never hand out the same ID twice.
type WorkRange struct {
	mu       sync.Mutex
	start    model.ObjectID
	end      model.ObjectID
	minSteal uint64
}

func NewWorkRange(minSteal uint64) *WorkRange {
	return &WorkRange{minSteal: minSteal}
}

// Reset installs a fresh span, owned locally. Used at search start and
// by a thief adopting a range it just stole as its own.
func (r *WorkRange) Reset(start, end model.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start, r.end = start, end
}

// TakeLocal advances start by up to n, owner-only, and returns the
// taken sub-range. Returns an empty range if the span is exhausted.
func (r *WorkRange) TakeLocal(n uint64) model.Range {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.start >= r.end {
		return model.Range{Start: r.start, End: r.start}
	}
	take := model.ObjectID(n)
	if r.start+take > r.end || r.start+take < r.start /* overflow */ {
		take = r.end - r.start
	}
	s := r.start
	r.start += take
	return model.Range{Start: s, End: r.start}
}

// Steal halves the remaining span and returns the upper half to the
// thief, provided at least 2*minSteal IDs remain (to avoid ping-pong
// between owner and thief over a near-empty range). The upper half is
// returned, not the lower, so the thief never races the owner's next
// TakeLocal pointer.
func (r *WorkRange) Steal(n uint64) (model.Range, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := uint64(r.end - r.start)
	if total < 2*r.minSteal {
		return model.Range{}, false
	}
	half := (total + 1) / 2 // ceil, so the owner keeps the (possibly smaller) lower half
	if n > 0 && half > n {
		half = n
	}
	newEnd := r.end - model.ObjectID(half)
	stolen := model.Range{Start: newEnd, End: r.end}
	r.end = newEnd
	return stolen, true
}

// Remaining reports how many IDs are left unowned-by-anyone-else in
// this range.
func (r *WorkRange) Remaining() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.start >= r.end {
		return 0
	}
	return uint64(r.end - r.start)
}

func (r *WorkRange) IsEmpty() bool {
	return r.Remaining() == 0
}
