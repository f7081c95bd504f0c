package protocol

import (
	"context"

	"github.com/pkg/errors"
)

// ErrClosed is returned by Receive and Send once a ChannelTransport has
// been closed; messages still buffered at that point may or may not be
// delivered first.
var ErrClosed = errors.New("protocol: transport closed")

// ChannelTransport is the reference Transport: two buffered Go
// channels, one per direction. It plays the role the source's
// MPI-disabled stub plays — a swappable transport that lets the
// engine and its tests run without a real wire protocol.
type ChannelTransport struct {
	inbound  chan Message // master -> worker
	outbound chan Message // worker -> master
	closed   chan struct{}
}

func NewChannelTransport(buffer int) *ChannelTransport {
	return &ChannelTransport{
		inbound:  make(chan Message, buffer),
		outbound: make(chan Message, buffer),
		closed:   make(chan struct{}),
	}
}

// Receive implements Transport, from the worker side.
func (t *ChannelTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-t.inbound:
		return msg, nil
	case <-t.closed:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Send implements Transport, from the worker side.
func (t *ChannelTransport) Send(ctx context.Context, msg Message) error {
	select {
	case t.outbound <- msg:
		return nil
	case <-t.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the transport closed; a pending or future Receive/Send
// unblocks with ErrClosed. Used by the master side to simulate a
// disconnect, which the worker must treat as an implicit Shutdown.
func (t *ChannelTransport) Close() {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
}

// MasterSide returns the complementary view of the transport for a
// test harness or demo master: it sends on what the worker receives
// on, and receives what the worker sends on.
func (t *ChannelTransport) MasterSide() *MasterHandle {
	return &MasterHandle{t: t}
}

// MasterHandle drives a ChannelTransport from the master's point of
// view — used by the scenario tests to script message sequences and
// observe worker -> master traffic.
type MasterHandle struct{ t *ChannelTransport }

func (h *MasterHandle) Send(ctx context.Context, msg Message) error {
	select {
	case h.t.inbound <- msg:
		return nil
	case <-h.t.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *MasterHandle) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-h.t.outbound:
		return msg, nil
	case <-h.t.closed:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}
