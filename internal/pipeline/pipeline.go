// Package pipeline defines the comparison pipeline consumed by the
// worker-node engine. The actual scoring math (filters, Forward/Viterbi,
// whatever a real implementation uses) is out of scope for this module —
// only the two-stage interface the scheduler drives is defined here,
// plus a reference stub used by tests and the demo CLI.
package pipeline

import (
	"context"

	"github.com/Schaudge/HMMER/internal/model"
)

// Pipeline is the black-box comparison operator the engine drives.
// Front is the cheap filter stage; Back is the expensive refinement
// stage run only for comparisons Front deferred. Implementations are
// not required to be safe for concurrent use by multiple goroutines —
// the engine creates one Pipeline per thread.
type Pipeline interface {
	Front(ctx context.Context, compareModel interface{}, object interface{}) (model.FrontResult, error)
	Back(ctx context.Context, entry model.BackendEntry) (*model.Hit, error)
}

// Factory builds one Pipeline instance per worker thread, so each
// thread gets its own scratch state (profile, optimized profile,
// background model) without sharing mutable pipeline internals.
type Factory func() Pipeline
