package pipeline

import (
	"context"

	"github.com/Schaudge/HMMER/internal/model"
)

// Stub is a configurable reference Pipeline used by tests and the
// --demo CLI mode. FrontFunc/BackFunc default to an always-Pass /
// never-a-hit pipeline when nil, so a Stub can be used with only the
// stages a test actually cares about set.
type Stub struct {
	FrontFunc func(ctx context.Context, compareModel interface{}, object interface{}) (model.FrontResult, error)
	BackFunc  func(ctx context.Context, entry model.BackendEntry) (*model.Hit, error)
}

func (s *Stub) Front(ctx context.Context, compareModel interface{}, object interface{}) (model.FrontResult, error) {
	if s.FrontFunc == nil {
		return model.FrontResult{Outcome: model.Pass}, nil
	}
	return s.FrontFunc(ctx, compareModel, object)
}

func (s *Stub) Back(ctx context.Context, entry model.BackendEntry) (*model.Hit, error) {
	if s.BackFunc == nil {
		return nil, nil
	}
	return s.BackFunc(ctx, entry)
}

// NewFactory wraps a Stub constructor into a Factory, cloning a fresh
// Stub (with the same funcs) for every thread.
func NewFactory(newStub func() *Stub) Factory {
	return func() Pipeline { return newStub() }
}
