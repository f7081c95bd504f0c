package search

import (
	"context"
	"testing"

	"github.com/Schaudge/HMMER/internal/config"
	"github.com/Schaudge/HMMER/internal/model"
	"github.com/Schaudge/HMMER/internal/pipeline"
	"github.com/Schaudge/HMMER/internal/protocol"
	"github.com/Schaudge/HMMER/internal/shard"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

type ThreadStateTestSuite struct {
	suite.Suite
}

func TestThreadStateTestSuite(t *testing.T) {
	suite.Run(t, new(ThreadStateTestSuite))
}

func newTestNode(ts *ThreadStateTestSuite, cfg config.Config, stub *pipeline.Stub) *WorkerNode {
	provider := shard.StaticProvider{"db": shard.NewMemShard(100)}
	transport := protocol.NewChannelTransport(8)
	n, err := New(cfg, provider, pipeline.NewFactory(func() *pipeline.Stub { return stub }), transport, zerolog.Nop())
	ts.Require().NoError(err)
	return n
}

func (ts *ThreadStateTestSuite) TestFrontendBatchPassSkipsBackendQueue() {
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.InitialBackends = 1
	cfg.BatchSize = 10

	n := newTestNode(ts, cfg, &pipeline.Stub{})
	n.activeShard = shard.NewMemShard(100)
	n.ranges[0].Reset(0, 5)

	err := n.threads[0].frontendBatch(context.Background())
	ts.NoError(err)
	ts.True(n.backendQueue.IsEmpty())
	ts.Equal(int64(0), n.threads[0].ComparisonsQueued())
}

func (ts *ThreadStateTestSuite) TestFrontendBatchNeedBackendEnqueues() {
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.InitialBackends = 1
	cfg.BatchSize = 10

	stub := &pipeline.Stub{
		FrontFunc: func(ctx context.Context, m, o interface{}) (model.FrontResult, error) {
			return model.FrontResult{Outcome: model.NeedBackend, ForwardScore: 1.5}, nil
		},
	}
	n := newTestNode(ts, cfg, stub)
	n.activeShard = shard.NewMemShard(100)
	n.ranges[0].Reset(0, 3)

	err := n.threads[0].frontendBatch(context.Background())
	ts.NoError(err)
	ts.Equal(3, n.backendQueue.Depth())
	ts.Equal(int64(3), n.threads[0].ComparisonsQueued())
}

func (ts *ThreadStateTestSuite) TestFrontendBatchSkipsForeignShardIDs() {
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.InitialBackends = 1
	cfg.BatchSize = 10
	cfg.NumShards = 2
	cfg.MyShard = 0

	calls := 0
	stub := &pipeline.Stub{
		FrontFunc: func(ctx context.Context, m, o interface{}) (model.FrontResult, error) {
			calls++
			return model.FrontResult{Outcome: model.Pass}, nil
		},
	}
	n := newTestNode(ts, cfg, stub)
	n.activeShard = shard.NewMemShard(100)
	n.ranges[0].Reset(0, 4) // ids 0,1,2,3 -> only 0 and 2 belong to shard 0

	err := n.threads[0].frontendBatch(context.Background())
	ts.NoError(err)
	ts.Equal(2, calls)
}

func (ts *ThreadStateTestSuite) TestBackendBatchProducesHit() {
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.InitialBackends = 1

	stub := &pipeline.Stub{
		BackFunc: func(ctx context.Context, e model.BackendEntry) (*model.Hit, error) {
			return &model.Hit{ObjectID: e.ObjectID, PrimaryKey: 9}, nil
		},
	}
	n := newTestNode(ts, cfg, stub)
	ts.Require().NoError(n.backendQueue.Push(model.BackendEntry{ObjectID: 7}))

	err := n.threads[0].backendBatch(context.Background())
	ts.NoError(err)
	ts.Equal(1, n.hits.Len())
	ts.Equal(int64(1), n.threads[0].HitsFound())
}

func (ts *ThreadStateTestSuite) TestBackendBatchNoHitStillReturnsCellToPool() {
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.InitialBackends = 1

	n := newTestNode(ts, cfg, &pipeline.Stub{})
	ts.Require().NoError(n.backendQueue.Push(model.BackendEntry{ObjectID: 1}))

	err := n.threads[0].backendBatch(context.Background())
	ts.NoError(err)
	ts.Equal(0, n.hits.Len())
	ts.Len(n.hitPool.free, 1)
}
