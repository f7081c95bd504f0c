package search

import (
	"testing"

	"github.com/Schaudge/HMMER/internal/model"
	"github.com/stretchr/testify/suite"
)

type HitCollectorTestSuite struct {
	suite.Suite
}

func TestHitCollectorTestSuite(t *testing.T) {
	suite.Run(t, new(HitCollectorTestSuite))
}

func (ts *HitCollectorTestSuite) TestDrainOrdersByPrimaryThenSecondaryDesc() {
	c := NewHitCollector()
	c.Add(model.Hit{ObjectID: 1, PrimaryKey: 5, SecondaryKey: 1})
	c.Add(model.Hit{ObjectID: 2, PrimaryKey: 9, SecondaryKey: 0})
	c.Add(model.Hit{ObjectID: 3, PrimaryKey: 9, SecondaryKey: 7})
	c.Add(model.Hit{ObjectID: 4, PrimaryKey: 1, SecondaryKey: 99})

	ts.Equal(4, c.Len())
	out := c.Drain()
	ts.Require().Len(out, 4)

	ts.Equal(model.ObjectID(3), out[0].ObjectID) // primary 9, secondary 7
	ts.Equal(model.ObjectID(2), out[1].ObjectID) // primary 9, secondary 0
	ts.Equal(model.ObjectID(1), out[2].ObjectID) // primary 5
	ts.Equal(model.ObjectID(4), out[3].ObjectID) // primary 1

	ts.Equal(0, c.Len())
}

func (ts *HitCollectorTestSuite) TestDrainOnEmptyCollector() {
	c := NewHitCollector()
	ts.Empty(c.Drain())
}

func (ts *HitCollectorTestSuite) TestHitPoolReusesCells() {
	p := NewHitPool()
	h := p.Get()
	h.ObjectID = 42
	p.Put(h)

	h2 := p.Get()
	ts.Equal(model.ObjectID(0), h2.ObjectID) // cell must be zeroed on reuse
}
