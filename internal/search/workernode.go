// Package search implements the worker-node execution core: the
// work-stealing, role-reassigning, backpressure-aware engine that
// drives a comparison pipeline over a database shard on behalf of one
// worker in a distributed sequence-search cluster.
package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Schaudge/HMMER/internal/config"
	"github.com/Schaudge/HMMER/internal/model"
	"github.com/Schaudge/HMMER/internal/pipeline"
	"github.com/Schaudge/HMMER/internal/protocol"
	"github.com/Schaudge/HMMER/internal/shard"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// State is the WorkerNode's top-level lifecycle state (spec.md §4.7).
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	default:
		return "idle"
	}
}

// mainLoopTick bounds how long the main loop blocks in one Receive
// call before re-checking search-completion and request-gating state,
// so those checks happen even during a lull in master traffic.
const mainLoopTick = 20 * time.Millisecond

const waitPollInterval = time.Millisecond

// WorkerNode is the top-level facade: lifecycle (create, run,
// shutdown), search start/end, and the main loop that handles master
// messages (spec.md §4.7).
type WorkerNode struct {
	cfg             config.Config
	logger          zerolog.Logger
	shardProvider   shard.Provider
	pipelineFactory pipeline.Factory
	transport       protocol.Transport

	scheduler    *Scheduler
	ranges       []*WorkRange
	threads      []*ThreadState
	globalQueue  *GlobalQueue
	backendQueue *BackendQueue
	backendPool  *BackendPool
	hits         *HitCollector
	hitPool      *HitPool
	barrier      *startBarrier

	shutdownFlag atomic.Bool
	fatalErr     atomic.Value // fatalWrap
	fatalOnce    sync.Once
	errCh        chan error

	mu                 sync.Mutex // guards the ambient per-search fields below
	state              State
	searchType         model.SearchType
	compareModelVal    interface{}
	compareSequenceVal interface{}
	compareLen         int
	activeShard        shard.Shard
	databaseID         string

	eg *errgroup.Group
}

type fatalWrap struct{ err error }

// New creates a WorkerNode: validates configuration, allocates the
// shared queues and per-thread state, and assigns each thread its
// initial role. This is the "create" step of spec.md §3's lifecycle;
// the node is reused across many searches until Serve returns.
func New(cfg config.Config, shardProvider shard.Provider, pf pipeline.Factory, transport protocol.Transport, logger zerolog.Logger) (*WorkerNode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &WorkerNode{
		cfg:             cfg,
		logger:          logger,
		shardProvider:   shardProvider,
		pipelineFactory: pf,
		transport:       transport,
		scheduler:       NewScheduler(cfg),
		globalQueue:     NewGlobalQueue(),
		backendPool:     NewBackendPool(cfg.MaxBackendEntries),
		hits:            NewHitCollector(),
		hitPool:         NewHitPool(),
		barrier:         newStartBarrier(),
		errCh:           make(chan error, cfg.NumThreads),
		state:           StateIdle,
	}
	n.backendQueue = NewBackendQueue(n.backendPool)

	n.ranges = make([]*WorkRange, cfg.NumThreads)
	for i := range n.ranges {
		n.ranges[i] = NewWorkRange(cfg.MinSteal)
	}

	roles := n.scheduler.InitialRoles()
	n.threads = make([]*ThreadState, cfg.NumThreads)
	for i := range n.threads {
		n.threads[i] = newThreadState(i, n, pf(), roles[i])
	}

	return n, nil
}

// Serve runs the worker node until ctx is cancelled, the master
// disconnects, or Shutdown is requested: it starts every thread's role
// loop, runs the main master-message loop on the calling goroutine,
// and joins all threads before returning. The returned error is nil on
// clean shutdown and non-nil on a setup, protocol, or resource-
// exhaustion failure (spec.md §6 exit-code contract; the CLI maps a
// non-nil error to a non-zero exit code).
func (n *WorkerNode) Serve(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	n.eg = eg
	for _, t := range n.threads {
		t := t
		eg.Go(func() error { return t.RoleLoop(egCtx) })
	}
	go n.watchErrors()

	n.mainLoop(ctx)

	n.initiateShutdown()
	if err := eg.Wait(); err != nil {
		// All RoleLoop goroutines have returned by now, so this can be
		// applied synchronously rather than routed through errCh/watchErrors.
		n.reportFatalNow(err)
	}
	close(n.errCh)

	return n.Err()
}

// Err reports the fatal error, if any, that caused Serve to shut down.
func (n *WorkerNode) Err() error {
	if v := n.fatalErr.Load(); v != nil {
		return v.(fatalWrap).err
	}
	return nil
}

func (n *WorkerNode) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// --- main loop -----------------------------------------------------

func (n *WorkerNode) mainLoop(ctx context.Context) {
	for {
		if n.isShutdown() {
			return
		}

		recvCtx, cancel := context.WithTimeout(ctx, mainLoopTick)
		msg, err := n.transport.Receive(recvCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				n.tick(ctx)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			// A disconnected or malformed transport is treated as an
			// implicit Shutdown (spec.md §7: protocol errors are fatal).
			n.logger.Error().Err(err).Msg("master transport receive failed, shutting down")
			n.reportFatalNow(err)
			return
		}

		n.dispatch(ctx, msg)
		n.tick(ctx)
	}
}

// tick performs the recurring housekeeping the main loop must do even
// absent new master traffic: forward a due WorkRequest, and check
// whether the active search has just completed.
func (n *WorkerNode) tick(ctx context.Context) {
	if n.scheduler.ConsumeRequestWork() {
		if err := n.transport.Send(ctx, protocol.Message{WorkRequest: &protocol.WorkRequest{}}); err != nil {
			n.logger.Error().Err(err).Msg("failed to send work request")
		} else {
			n.scheduler.RecordWorkRequestSent()
		}
	}

	if n.State() == StateRunning && n.searchComplete() {
		n.finishSearch(ctx)
	}
}

func (n *WorkerNode) dispatch(ctx context.Context, msg protocol.Message) {
	switch {
	case msg.SearchStart != nil:
		n.handleSearchStart(ctx, msg.SearchStart)
	case msg.WorkGrant != nil:
		n.handleWorkGrant(msg.WorkGrant)
	case msg.NoMoreWork != nil:
		n.scheduler.OnNoMoreWork()
	case msg.Shutdown != nil:
		n.initiateShutdown()
	default:
		n.logger.Error().Msg("malformed message from master")
		n.reportFatalNow(errors.New("search: empty/malformed protocol message"))
	}
}

// --- search lifecycle ------------------------------------------------

func (n *WorkerNode) handleSearchStart(ctx context.Context, msg *protocol.SearchStart) {
	sh, err := n.shardProvider.Load(msg.DatabaseID)
	if err != nil {
		n.logger.Error().Err(err).Str("database", msg.DatabaseID).Msg("failed to load shard for search start")
		n.reportFatalNow(err)
		return
	}

	n.mu.Lock()
	n.state = StateRunning
	n.activeShard = sh
	n.databaseID = msg.DatabaseID
	n.compareModelVal = msg.Model
	n.compareSequenceVal = msg.Sequence
	n.compareLen = msg.SequenceLength
	if msg.Mode == protocol.HmmSearch {
		n.searchType = model.HmmSearchInitial
	} else {
		n.searchType = model.SequenceSearchInitial
	}
	n.mu.Unlock()

	n.scheduler.ResetForNewSearch()
	n.distributeInitialRange(msg.Range)

	n.awaitAllWaiting()
	n.barrier.Broadcast()

	// Threads woken by this broadcast no longer need per-search setup
	// if they wake again later (e.g. after a role change): flip to the
	// Continue variant now that the initial distribution has happened.
	n.mu.Lock()
	n.searchType = n.searchType.Continuation()
	n.mu.Unlock()
}

func (n *WorkerNode) handleWorkGrant(msg *protocol.WorkGrant) {
	if n.allRangesEmpty() && n.barrier.WaitingCount() == n.cfg.NumThreads {
		n.distributeInitialRange(msg.Range)
	} else {
		n.globalQueue.Push(msg.Range)
	}
	n.scheduler.OnWorkGrant()
	n.barrier.Broadcast()
}

func (n *WorkerNode) distributeInitialRange(r model.Range) {
	total := r.Len()
	threads := uint64(n.cfg.NumThreads)
	per := total / threads
	rem := total % threads

	cur := r.Start
	for i := 0; i < n.cfg.NumThreads; i++ {
		size := per
		if uint64(i) < rem {
			size++
		}
		n.ranges[i].Reset(cur, cur+model.ObjectID(size))
		cur += model.ObjectID(size)
	}
}

func (n *WorkerNode) searchComplete() bool {
	return n.allRangesEmpty() && n.globalQueue.IsEmpty() && n.backendQueue.IsEmpty() && n.scheduler.MasterQueueEmpty()
}

func (n *WorkerNode) finishSearch(ctx context.Context) {
	hits := n.hits.Drain()
	if err := n.transport.Send(ctx, protocol.Message{HitsUpload: &protocol.HitsUpload{Hits: hits}}); err != nil {
		n.logger.Error().Err(err).Msg("failed to upload hits")
	}

	n.mu.Lock()
	n.state = StateIdle
	n.searchType = model.Idle
	n.compareModelVal = nil
	n.compareSequenceVal = nil
	n.compareLen = 0
	n.activeShard = nil
	n.databaseID = ""
	n.mu.Unlock()
}

func (n *WorkerNode) allRangesEmpty() bool {
	for _, r := range n.ranges {
		if !r.IsEmpty() {
			return false
		}
	}
	return true
}

// --- shutdown & error reporting ----------------------------------

func (n *WorkerNode) initiateShutdown() {
	if n.shutdownFlag.CompareAndSwap(false, true) {
		n.mu.Lock()
		n.state = StateShutdown
		n.mu.Unlock()
	}
	n.barrier.Broadcast()
}

func (n *WorkerNode) isShutdown() bool { return n.shutdownFlag.Load() }

// reportFatal is called from a worker thread goroutine (e.g. on pool
// exhaustion); it never blocks, so a thread never stalls trying to
// report a failure the main loop is slow to pick up.
func (n *WorkerNode) reportFatal(err error) {
	select {
	case n.errCh <- err:
	default:
	}
}

func (n *WorkerNode) watchErrors() {
	for err := range n.errCh {
		n.reportFatalNow(err)
	}
}

func (n *WorkerNode) reportFatalNow(err error) {
	n.fatalOnce.Do(func() {
		n.fatalErr.Store(fatalWrap{err})
		n.initiateShutdown()
	})
}

// --- accessors used by ThreadState and waitForNextPhase -----------

func (n *WorkerNode) compareModel() interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.compareModelVal != nil {
		return n.compareModelVal
	}
	return n.compareSequenceVal
}

func (n *WorkerNode) shardRef() shard.Shard {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activeShard
}

func (n *WorkerNode) waitForNextPhase(ctx context.Context, _ int) {
	n.barrier.Wait(ctx, &n.shutdownFlag)
}

func (n *WorkerNode) refill(threadID int) bool {
	span, ok := n.scheduler.TryRefill(threadID, n.ranges, n.globalQueue, n.cfg.ChunkSize)
	if !ok {
		return false
	}
	n.ranges[threadID].Reset(span.Start, span.End)
	return true
}

func (n *WorkerNode) awaitAllWaiting() {
	for n.barrier.WaitingCount() < n.cfg.NumThreads {
		if n.isShutdown() {
			return
		}
		time.Sleep(waitPollInterval)
	}
}

// --- metrics.StatsSource -------------------------------------------

func (n *WorkerNode) GlobalQueueDepth() uint64  { return n.globalQueue.DepthIDs() }
func (n *WorkerNode) BackendQueueDepth() uint64 { return uint64(n.backendQueue.Depth()) }
func (n *WorkerNode) HitsCollected() uint64     { return uint64(n.hits.Len()) }
func (n *WorkerNode) FrontendThreads() int      { return n.cfg.NumThreads - n.scheduler.NumBackendThreads() }
func (n *WorkerNode) BackendThreads() int       { return n.scheduler.NumBackendThreads() }
func (n *WorkerNode) WorkRequestsSent() uint64  { return n.scheduler.WorkRequestsSent() }
func (n *WorkerNode) StealsAttempted() uint64   { return n.scheduler.StealsAttempted() }
func (n *WorkerNode) StealsSucceeded() uint64   { return n.scheduler.StealsSucceeded() }
