package shard

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MemShardTestSuite struct {
	suite.Suite
}

func TestMemShardTestSuite(t *testing.T) {
	suite.Run(t, new(MemShardTestSuite))
}

func (ts *MemShardTestSuite) TestObjectAtWithinRange() {
	s := NewMemShard(10)
	ts.EqualValues(10, s.Count())

	obj, err := s.ObjectAt(3)
	ts.Require().NoError(err)
	ts.Equal("object-3", obj)
}

func (ts *MemShardTestSuite) TestObjectAtOutOfRange() {
	s := NewMemShard(10)
	_, err := s.ObjectAt(10)
	ts.ErrorIs(err, ErrOutOfRange)
}

func (ts *MemShardTestSuite) TestStaticProviderUnknownDatabase() {
	p := StaticProvider{"a": NewMemShard(1)}
	_, err := p.Load("b")
	ts.ErrorIs(err, ErrUnknownDatabase)
}

func (ts *MemShardTestSuite) TestStaticProviderKnownDatabase() {
	s := NewMemShard(5)
	p := StaticProvider{"a": s}
	got, err := p.Load("a")
	ts.Require().NoError(err)
	ts.Equal(s, got)
}

func (ts *MemShardTestSuite) TestIDOf() {
	ts.EqualValues(2, IDOf(10, 4))
}
