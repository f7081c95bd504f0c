// Package shard defines the indexable database shard consumed by the
// worker-node engine. On-disk layout and loading are out of scope —
// the engine only ever needs Count and ObjectAt.
package shard

import "github.com/Schaudge/HMMER/internal/model"

// Shard is a worker's local partition of one loaded database.
// ObjectAt must be cheap and re-entrant: the engine calls it from
// every front-end thread without synchronization.
type Shard interface {
	Count() uint64
	ObjectAt(id model.ObjectID) (interface{}, error)
}

// IDOf reports which shard owns id when a database is partitioned
// into numShards shards.
func IDOf(id model.ObjectID, numShards uint64) uint64 {
	return id % numShards
}

// Provider resolves the shard backing a database by ID, the way a
// real worker would consult its loaded-database table on SearchStart.
type Provider interface {
	Load(databaseID string) (Shard, error)
}

// StaticProvider serves a fixed set of already-loaded shards, keyed by
// database ID. Used by the demo CLI and by tests.
type StaticProvider map[string]Shard

func (p StaticProvider) Load(databaseID string) (Shard, error) {
	s, ok := p[databaseID]
	if !ok {
		return nil, ErrUnknownDatabase
	}
	return s, nil
}
