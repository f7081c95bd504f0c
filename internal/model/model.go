// Package model holds the data types shared across the worker-node
// engine, the consumed pipeline interface, and the master-worker
// protocol. Keeping them here lets internal/search and internal/pipeline
// depend on a common vocabulary without depending on each other.
package model

// ObjectID identifies an object in a shard's indexable object space.
// IDs belonging to shard s of a database partitioned into n shards
// satisfy id mod n == s.
type ObjectID = uint64

// SearchType mirrors the source's enum of search-and-continue variants.
// The Continue variants exist so a thread waking mid-search (after a
// WorkGrant, or after a role change) can skip per-search setup already
// performed when the Initial variant was first observed.
type SearchType int

const (
	Idle SearchType = iota
	SequenceSearchInitial
	SequenceSearchContinue
	HmmSearchInitial
	HmmSearchContinue
)

func (t SearchType) Continuation() SearchType {
	switch t {
	case SequenceSearchInitial, SequenceSearchContinue:
		return SequenceSearchContinue
	case HmmSearchInitial, HmmSearchContinue:
		return HmmSearchContinue
	default:
		return Idle
	}
}

func (t SearchType) Active() bool {
	return t != Idle
}

// Role is the duty a thread is currently performing.
type Role int32

const (
	Frontend Role = iota
	Backend
)

func (r Role) String() string {
	if r == Backend {
		return "backend"
	}
	return "frontend"
}

// FrontOutcome is the verdict of one front-end comparison.
type FrontOutcome int

const (
	Pass FrontOutcome = iota
	Fail
	NeedBackend
)

// FrontResult is returned by the front-end stage of the pipeline.
type FrontResult struct {
	Outcome      FrontOutcome
	Partial      interface{} // only meaningful when Outcome == NeedBackend
	ForwardScore float64
	NullScore    float64
}

// BackendEntry is a deferred expensive comparison, produced by a
// front-end thread and consumed by a back-end thread. Payload is
// resolved by the pipeline, not the core: it is a sequence reference
// for SequenceSearch and a profile reference for HmmSearch. Unifying
// the two into one interface{}-typed field (rather than keeping two
// BackendEntry variants) is a deliberate resolution of the source's
// "one-HMM-many-sequence" asymmetry — the core never interprets
// Payload, so a single shape suffices.
type BackendEntry struct {
	ObjectID     ObjectID
	Payload      interface{}
	Partial      interface{}
	ForwardScore float64
	NullScore    float64
}

// Hit is a scored match produced by the back-end pipeline for one
// (model, object) pair. The collector orders hits by
// (PrimaryKey desc, SecondaryKey desc).
type Hit struct {
	ObjectID     ObjectID
	PrimaryKey   float64
	SecondaryKey float64
	Payload      interface{}
}

// higherThan reports whether h sorts strictly before other under the
// collector's ordering (used to build the max-heap comparator).
func (h Hit) higherThan(other Hit) bool {
	if h.PrimaryKey != other.PrimaryKey {
		return h.PrimaryKey > other.PrimaryKey
	}
	return h.SecondaryKey > other.SecondaryKey
}

// HigherThan exposes higherThan for use outside the package (tests,
// alternate collector implementations).
func HigherThan(a, b Hit) bool { return a.higherThan(b) }

// Range is a half-open [Start, End) span of object IDs.
type Range struct {
	Start ObjectID
	End   ObjectID
}

func (r Range) Len() uint64 { return uint64(r.End - r.Start) }

func (r Range) Empty() bool { return r.Start >= r.End }
