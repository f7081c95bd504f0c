package search

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Schaudge/HMMER/internal/model"
	"github.com/Schaudge/HMMER/internal/pipeline"
)

// idleBackoff is the brief pause a back-end thread takes before
// polling again when it found the backend queue empty — avoiding a hot busy-wait loop the way the teacher's workStealingWorker
// backs off between failed steal rounds.
const idleBackoff = time.Millisecond

// ThreadState is the per-thread mutable state described in spec.md
// §3: only the owning goroutine ever writes role, comparisonsQueued,
// hitsFound and errors, so none of them need their own lock — role is
// only ever *set* by the scheduler's pending-role cell and applied by
// the thread itself between pipeline invocations.
type ThreadState struct {
	id       int
	engine   *WorkerNode
	pipeline pipeline.Pipeline

	role              atomic.Int32
	comparisonsQueued atomic.Int64
	hitsFound         atomic.Int64
	errs              atomic.Int64
}

func newThreadState(id int, engine *WorkerNode, p pipeline.Pipeline, initial model.Role) *ThreadState {
	t := &ThreadState{id: id, engine: engine, pipeline: p}
	t.role.Store(int32(initial))
	return t
}

func (t *ThreadState) Role() model.Role               { return model.Role(t.role.Load()) }
func (t *ThreadState) ComparisonsQueued() int64        { return t.comparisonsQueued.Load() }
func (t *ThreadState) HitsFound() int64                { return t.hitsFound.Load() }
func (t *ThreadState) Errors() int64                   { return t.errs.Load() }
func (t *ThreadState) setRole(r model.Role)            { t.role.Store(int32(r)) }

// RoleLoop is the per-thread loop of spec.md §4.5: while not shutdown,
// perform one batch of whatever the thread's current role calls for,
// checking for a pending role transition between batches (the safe
// point the source relies on role changes only ever happening between
// pipeline invocations).
func (t *ThreadState) RoleLoop(ctx context.Context) error {
	n := t.engine
	for {
		if n.isShutdown() {
			return nil
		}
		if newRole, changed := n.scheduler.ApplyPendingRole(t.id); changed {
			t.setRole(newRole)
		}

		var err error
		switch t.Role() {
		case model.Frontend:
			err = t.frontendBatch(ctx)
		case model.Backend:
			err = t.backendBatch(ctx)
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// frontendBatch drains up to BatchSize IDs from the thread's own
// range, running each through the front-end stage; on own-range
// exhaustion it asks the engine to refill or, failing that, waits for
// the next search phase.
func (t *ThreadState) frontendBatch(ctx context.Context) error {
	n := t.engine
	r := n.ranges[t.id]

	span := r.TakeLocal(n.cfg.BatchSize)
	if span.Empty() {
		if !n.refill(t.id) {
			n.waitForNextPhase(ctx, t.id)
		}
		return nil
	}

	compareModel := n.compareModel()
	for id := span.Start; id < span.End; id++ {
		if id%n.cfg.NumShards != n.cfg.MyShard {
			continue
		}
		obj, err := n.shardRef().ObjectAt(id)
		if err != nil {
			t.errs.Add(1)
			continue
		}
		fr, err := t.pipeline.Front(ctx, compareModel, obj)
		if err != nil {
			t.errs.Add(1)
			continue
		}
		if fr.Outcome != model.NeedBackend {
			continue
		}
		entry := model.BackendEntry{
			ObjectID:     id,
			Payload:      obj,
			Partial:      fr.Partial,
			ForwardScore: fr.ForwardScore,
			NullScore:    fr.NullScore,
		}
		if err := n.backendQueue.Push(entry); err != nil {
			n.reportFatal(err)
			return nil
		}
		t.comparisonsQueued.Add(1)
		n.scheduler.NoteBackendPush()
		n.scheduler.MaybePromote(n.backendQueue.Depth(), n.threads)
	}

	n.scheduler.MaybeRequestWork(n.globalQueue, n.cfg.RequestThreshold)
	return nil
}

// backendBatch consumes one BackendEntry, running it through the
// back-end refinement stage, or — finding the queue empty with no
// other work anywhere — considers demotion back to frontend duty.
func (t *ThreadState) backendBatch(ctx context.Context) error {
	n := t.engine

	entry, ok := n.backendQueue.Pop()
	if !ok {
		if n.scheduler.NoSteal() && n.allRangesEmpty() && n.scheduler.MasterQueueEmpty() {
			n.scheduler.ObserveBackendDrained()
			n.scheduler.MaybeDemote(n.threads)
		}
		time.Sleep(idleBackoff)
		return nil
	}

	hitCell := n.hitPool.Get()
	hit, err := t.pipeline.Back(ctx, entry)
	if err != nil {
		t.errs.Add(1)
		n.hitPool.Put(hitCell)
		return nil
	}
	if hit != nil {
		*hitCell = *hit
		n.hits.Add(*hitCell)
		t.hitsFound.Add(1)
	}
	n.hitPool.Put(hitCell)
	return nil
}
