package search

import (
	"sync"
	"sync/atomic"

	"github.com/Schaudge/HMMER/internal/config"
	"github.com/Schaudge/HMMER/internal/model"
)

// Scheduler owns the three cross-thread policies spec.md §4.6
// describes: work-stealing victim selection, master work-request
// gating, and front-end/back-end role reassignment. It holds no work
// itself — ranges and queues are passed in by the caller — so its own
// lock never nests under WorkRange.lock or global_queue_lock, honoring
// the lock-order invariant (spec.md §3-inv-4): a thread never holds a
// WorkRange lock while calling into the scheduler's global-queue path.
type Scheduler struct {
	numThreads int
	minSteal   uint64
	promoteHi  float64
	drainGoal  int

	noSteal  atomic.Bool
	shutdown atomic.Bool

	workRequestMu    sync.Mutex
	requestWork      bool
	workRequested    bool
	masterQueueEmpty bool

	backendThreadsMu  sync.Mutex
	numBackendThreads int
	pending           []*model.Role // per-thread pending role change, nil = none

	stealsAttempted  atomic.Uint64
	stealsSucceeded  atomic.Uint64
	workRequestsSent atomic.Uint64
	drainStreak      atomic.Int64
}

func NewScheduler(cfg config.Config) *Scheduler {
	return &Scheduler{
		numThreads:        cfg.NumThreads,
		minSteal:          cfg.MinSteal,
		promoteHi:         cfg.PromoteHi,
		drainGoal:         cfg.DrainCycles,
		numBackendThreads: cfg.InitialBackends,
		pending:           make([]*model.Role, cfg.NumThreads),
	}
}

// InitialRoles reports the role each thread should start a fresh
// search in: the first InitialBackends threads are Backend, the rest
// Frontend. There must always be >=1 of each (enforced by
// config.Validate).
func (s *Scheduler) InitialRoles() []model.Role {
	roles := make([]model.Role, s.numThreads)
	for i := range roles {
		if i < s.numBackendThreads {
			roles[i] = model.Backend
		} else {
			roles[i] = model.Frontend
		}
	}
	return roles
}

// --- work stealing ---------------------------------------------------

// TryRefill attempts to refill an exhausted WorkRange: first from the
// GlobalQueue, then — unless the no-steal sentinel is set — by
// stealing from a peer range in round-robin order starting just past
// myID. A full rotation with nothing to steal sets the no-steal
// sentinel, cleared again by ClearNoSteal when new work arrives.
func (s *Scheduler) TryRefill(myID int, ranges []*WorkRange, q *GlobalQueue, chunkSize uint64) (model.Range, bool) {
	if span, ok := q.Pull(chunkSize); ok {
		return span, true
	}

	if s.noSteal.Load() {
		return model.Range{}, false
	}

	n := len(ranges)
	for attempt := 1; attempt <= n; attempt++ {
		victim := (myID + attempt) % n
		if victim == myID {
			continue
		}
		s.stealsAttempted.Add(1)
		if span, ok := ranges[victim].Steal(chunkSize); ok {
			s.stealsSucceeded.Add(1)
			return span, true
		}
	}

	s.noSteal.Store(true)
	return model.Range{}, false
}

func (s *Scheduler) ClearNoSteal() { s.noSteal.Store(false) }

func (s *Scheduler) NoSteal() bool { return s.noSteal.Load() }

// --- master work-request gating --------------------------------------

// MaybeRequestWork flags a WorkRequest as due once GlobalQueue depth
// drops below threshold, provided one isn't already outstanding and
// the master hasn't already told us it has no more work. The
// workRequestMu-guarded flags alone serialize and de-duplicate
// concurrent callers crossing the threshold at once — at most one
// ends up flipping requestWork/workRequested.
func (s *Scheduler) MaybeRequestWork(q *GlobalQueue, threshold uint64) {
	if q.DepthIDs() >= threshold {
		return
	}
	s.workRequestMu.Lock()
	defer s.workRequestMu.Unlock()
	if !s.workRequested && !s.masterQueueEmpty {
		s.requestWork = true
		s.workRequested = true
	}
}

// ConsumeRequestWork is polled by the main loop: if a request is due,
// it clears the flag and returns true so the caller sends exactly one
// WorkRequest.
func (s *Scheduler) ConsumeRequestWork() bool {
	s.workRequestMu.Lock()
	defer s.workRequestMu.Unlock()
	if !s.requestWork {
		return false
	}
	s.requestWork = false
	return true
}

// OnWorkGrant clears the in-flight request marker and the no-steal
// sentinel: new work has arrived, so both stealing and low-water-mark
// gating should be retried.
func (s *Scheduler) OnWorkGrant() {
	s.workRequestMu.Lock()
	s.workRequested = false
	s.workRequestMu.Unlock()
	s.ClearNoSteal()
}

// OnNoMoreWork records that the master's queue for this search is
// exhausted.
func (s *Scheduler) OnNoMoreWork() {
	s.workRequestMu.Lock()
	defer s.workRequestMu.Unlock()
	s.masterQueueEmpty = true
	s.workRequested = false
}

func (s *Scheduler) MasterQueueEmpty() bool {
	s.workRequestMu.Lock()
	defer s.workRequestMu.Unlock()
	return s.masterQueueEmpty
}

// ResetForNewSearch clears per-search gating state.
func (s *Scheduler) ResetForNewSearch() {
	s.workRequestMu.Lock()
	s.requestWork = false
	s.workRequested = false
	s.masterQueueEmpty = false
	s.workRequestMu.Unlock()
	s.ClearNoSteal()
	s.drainStreak.Store(0)
}

// --- role reassignment -------------------------------------------------

func (s *Scheduler) effectiveBackendCountLocked() int {
	n := s.numBackendThreads
	for _, p := range s.pending {
		if p == nil {
			continue
		}
		if *p == model.Backend {
			n++
		} else {
			n--
		}
	}
	return n
}

// MaybePromote marks one frontend thread (the one with the most
// comparisons queued, since it is making the least progress anyway)
// for promotion to backend duty, if the backend queue is deep enough
// relative to current backend capacity and there is still room to
// promote (>=1 frontend thread must remain).
func (s *Scheduler) MaybePromote(backendQueueDepth int, threads []*ThreadState) {
	s.backendThreadsMu.Lock()
	defer s.backendThreadsMu.Unlock()

	if float64(backendQueueDepth) <= s.promoteHi*float64(s.numBackendThreads) {
		return
	}
	if s.effectiveBackendCountLocked() >= s.numThreads-1 {
		return
	}

	victimIdx := -1
	var maxQueued int64 = -1
	for i, t := range threads {
		if s.pending[i] != nil || t.Role() != model.Frontend {
			continue
		}
		if q := t.ComparisonsQueued(); q > maxQueued {
			maxQueued = q
			victimIdx = i
		}
	}
	if victimIdx == -1 {
		return
	}
	role := model.Backend
	s.pending[victimIdx] = &role
}

// MaybeDemote marks one backend thread for demotion to frontend once
// the backend queue has stayed empty for a full drain cycle, provided
// more than one backend thread remains.
func (s *Scheduler) MaybeDemote(threads []*ThreadState) {
	if s.drainStreak.Load() < int64(s.drainGoal) {
		return
	}

	s.backendThreadsMu.Lock()
	defer s.backendThreadsMu.Unlock()

	if s.effectiveBackendCountLocked() <= 1 {
		return
	}

	victimIdx := -1
	for i, t := range threads {
		if s.pending[i] != nil || t.Role() != model.Backend {
			continue
		}
		victimIdx = i
		break
	}
	if victimIdx == -1 {
		return
	}
	role := model.Frontend
	s.pending[victimIdx] = &role
	s.drainStreak.Store(0)
}

// ObserveBackendDrained is called by a backend thread that found the
// backend queue empty with no other work in flight; NoteBackendPush
// resets the streak the instant new work appears.
func (s *Scheduler) ObserveBackendDrained() { s.drainStreak.Add(1) }

func (s *Scheduler) NoteBackendPush() { s.drainStreak.Store(0) }

// ApplyPendingRole is called by a thread between pipeline invocations;
// it atomically applies and clears any role change the scheduler
// marked for threadIdx, keeping numBackendThreads in sync with the
// roles actually in effect.
func (s *Scheduler) ApplyPendingRole(threadIdx int) (model.Role, bool) {
	s.backendThreadsMu.Lock()
	defer s.backendThreadsMu.Unlock()

	p := s.pending[threadIdx]
	if p == nil {
		return 0, false
	}
	s.pending[threadIdx] = nil
	if *p == model.Backend {
		s.numBackendThreads++
	} else {
		s.numBackendThreads--
	}
	return *p, true
}

func (s *Scheduler) NumBackendThreads() int {
	s.backendThreadsMu.Lock()
	defer s.backendThreadsMu.Unlock()
	return s.numBackendThreads
}

// --- metrics accessors -------------------------------------------------

func (s *Scheduler) StealsAttempted() uint64  { return s.stealsAttempted.Load() }
func (s *Scheduler) StealsSucceeded() uint64  { return s.stealsSucceeded.Load() }
func (s *Scheduler) WorkRequestsSent() uint64 { return s.workRequestsSent.Load() }
func (s *Scheduler) RecordWorkRequestSent()   { s.workRequestsSent.Add(1) }
