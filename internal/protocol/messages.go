// Package protocol defines the master-worker message set and the
// transport abstraction the worker-node engine consumes. The wire
// format itself (the source's MPI transport) is out of scope; this
// package defines the Go types and a swappable Transport interface,
// with a channel-backed reference implementation for tests and the
// demo CLI — analogous to the source's MPI-disabled compile path.
package protocol

import (
	"context"

	"github.com/Schaudge/HMMER/internal/model"
)

// Mode selects which comparison the worker is being asked to run.
type Mode int

const (
	SequenceSearch Mode = iota
	HmmSearch
)

// SearchStart begins a new search. Exactly one of Model or Sequence is
// meaningful, selected by Mode.
type SearchStart struct {
	Mode           Mode
	DatabaseID     string
	Model          interface{} // profile HMM reference, HmmSearch only
	Sequence       interface{} // query sequence reference, SequenceSearch only
	SequenceLength int
	Range          model.Range
}

// WorkGrant hands the worker another range of object IDs for the
// search in progress; the initial range arrives in SearchStart.
type WorkGrant struct {
	Range model.Range
}

// NoMoreWork tells the worker the master's queue for this search is
// exhausted; no further WorkGrant will arrive.
type NoMoreWork struct{}

// Shutdown tells the worker to finish in-flight comparisons and exit.
type Shutdown struct{}

// WorkRequest is sent worker -> master when the global queue runs low.
type WorkRequest struct{}

// HitsUpload is sent worker -> master at search end, carrying hits
// sorted by (PrimaryKey desc, SecondaryKey desc).
type HitsUpload struct {
	Hits []model.Hit
}

// Message is a tagged union over the protocol's message set. Exactly
// one field is non-nil.
type Message struct {
	SearchStart *SearchStart
	WorkGrant   *WorkGrant
	NoMoreWork  *NoMoreWork
	Shutdown    *Shutdown
	WorkRequest *WorkRequest
	HitsUpload  *HitsUpload
}

// Transport is the asynchronous bidirectional channel carrying the
// master-worker protocol. Receive blocks (from the worker's point of
// view) for the next master -> worker message; Send delivers one
// worker -> master message.
type Transport interface {
	Receive(ctx context.Context) (Message, error)
	Send(ctx context.Context, msg Message) error
}
