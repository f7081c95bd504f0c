package search

import (
	"testing"

	"github.com/Schaudge/HMMER/internal/model"
	"github.com/stretchr/testify/suite"
)

type WorkRangeTestSuite struct {
	suite.Suite
}

func TestWorkRangeTestSuite(t *testing.T) {
	suite.Run(t, new(WorkRangeTestSuite))
}

func (ts *WorkRangeTestSuite) TestTakeLocalAdvancesAndExhausts() {
	r := NewWorkRange(4)
	r.Reset(0, 10)

	span := r.TakeLocal(3)
	ts.Equal(model.Range{Start: 0, End: 3}, span)
	ts.Equal(uint64(7), r.Remaining())

	span = r.TakeLocal(100)
	ts.Equal(model.Range{Start: 3, End: 10}, span)
	ts.True(r.IsEmpty())

	span = r.TakeLocal(5)
	ts.True(span.Empty())
}

func (ts *WorkRangeTestSuite) TestStealRequiresMinimum() {
	r := NewWorkRange(10)
	r.Reset(0, 15) // total=15 < 2*minSteal=20

	_, ok := r.Steal(100)
	ts.False(ok)
}

func (ts *WorkRangeTestSuite) TestStealTakesUpperHalf() {
	r := NewWorkRange(4)
	r.Reset(0, 20)

	span, ok := r.Steal(100)
	ts.True(ok)
	ts.Equal(model.Range{Start: 10, End: 20}, span)
	ts.Equal(uint64(10), r.Remaining())

	// owner's next local take must come from the lower half, never
	// overlapping what the thief just took.
	owned := r.TakeLocal(100)
	ts.Equal(model.Range{Start: 0, End: 10}, owned)
}

func (ts *WorkRangeTestSuite) TestStealBoundedByRequestedSize() {
	r := NewWorkRange(4)
	r.Reset(0, 20)

	span, ok := r.Steal(3)
	ts.True(ok)
	ts.Equal(uint64(3), span.Len())
	ts.Equal(uint64(17), r.Remaining())
}

func (ts *WorkRangeTestSuite) TestResetInstallsFreshSpan() {
	r := NewWorkRange(1)
	r.Reset(5, 8)
	ts.Equal(uint64(3), r.Remaining())

	r.Reset(100, 100)
	ts.True(r.IsEmpty())
}
