package shard

import (
	"fmt"

	"github.com/Schaudge/HMMER/internal/model"
	"github.com/pkg/errors"
)

// ErrUnknownDatabase is returned by a Provider for a database ID it
// has no shard loaded for.
var ErrUnknownDatabase = errors.New("shard: unknown database id")

// ErrOutOfRange is returned by MemShard.ObjectAt for an id at or past
// Count.
var ErrOutOfRange = errors.New("shard: object id out of range")

// MemShard is an in-memory reference Shard of n synthetic objects,
// used by tests and the demo CLI so the engine can be exercised
// end-to-end without a real on-disk database format.
type MemShard struct {
	n uint64
}

func NewMemShard(n uint64) *MemShard {
	return &MemShard{n: n}
}

func (s *MemShard) Count() uint64 { return s.n }

func (s *MemShard) ObjectAt(id model.ObjectID) (interface{}, error) {
	if id >= s.n {
		return nil, errors.Wrapf(ErrOutOfRange, "id=%d count=%d", id, s.n)
	}
	return fmt.Sprintf("object-%d", id), nil
}
