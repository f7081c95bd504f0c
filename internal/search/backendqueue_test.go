package search

import (
	"testing"

	"github.com/Schaudge/HMMER/internal/model"
	"github.com/stretchr/testify/suite"
)

type BackendQueueTestSuite struct {
	suite.Suite
}

func TestBackendQueueTestSuite(t *testing.T) {
	suite.Run(t, new(BackendQueueTestSuite))
}

func (ts *BackendQueueTestSuite) TestPushPopFIFO() {
	pool := NewBackendPool(0)
	q := NewBackendQueue(pool)

	ts.Require().NoError(q.Push(model.BackendEntry{ObjectID: 1}))
	ts.Require().NoError(q.Push(model.BackendEntry{ObjectID: 2}))
	ts.Equal(2, q.Depth())

	e, ok := q.Pop()
	ts.True(ok)
	ts.Equal(model.ObjectID(1), e.ObjectID)

	e, ok = q.Pop()
	ts.True(ok)
	ts.Equal(model.ObjectID(2), e.ObjectID)

	ts.True(q.IsEmpty())
}

func (ts *BackendQueueTestSuite) TestPopOnEmptyQueue() {
	q := NewBackendQueue(NewBackendPool(0))
	_, ok := q.Pop()
	ts.False(ok)
}

func (ts *BackendQueueTestSuite) TestBoundedPoolExhaustion() {
	pool := NewBackendPool(1)
	q := NewBackendQueue(pool)

	ts.Require().NoError(q.Push(model.BackendEntry{ObjectID: 1}))

	err := q.Push(model.BackendEntry{ObjectID: 2})
	ts.ErrorIs(err, ErrBackendPoolExhausted)
}

func (ts *BackendQueueTestSuite) TestPoolRecyclesFreedNodes() {
	pool := NewBackendPool(1)
	q := NewBackendQueue(pool)

	ts.Require().NoError(q.Push(model.BackendEntry{ObjectID: 1}))
	_, _ = q.Pop()

	// the one allowed slot was freed back to the pool by Pop, so a
	// second Push must succeed rather than returning ErrBackendPoolExhausted.
	ts.Require().NoError(q.Push(model.BackendEntry{ObjectID: 2}))
}
