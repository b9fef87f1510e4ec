package net

import (
	"context"
	"errors"
)

var (
	// ErrListenerClosed is returned by Accept once the listener is closed.
	ErrListenerClosed = errors.New("listener closed")
)

// StreamLayer provides the low level connections used by a Transport.
type StreamLayer interface {
	// Listen starts accepting connections on addr.
	Listen(addr string) (Listener, error)

	// Dial opens a connection to addr. It blocks until the connection is
	// established, fails, or ctx is done.
	Dial(ctx context.Context, addr string) (Conn, error)
}

// Listener accepts incoming connections of a StreamLayer.
type Listener interface {
	// Accept blocks until a new connection arrives or the listener is
	// closed.
	Accept() (Conn, error)

	// Addr returns the address the listener is bound to.
	Addr() string

	Close() error
}

// Conn is a bidirectional stream of envelopes.
//
// ReadEnvelope returns io.EOF when the peer closed the connection in an
// orderly fashion. WriteEnvelope may be called concurrently with
// ReadEnvelope but not with itself.
type Conn interface {
	ReadEnvelope() (*MessageEnvelope, error)
	WriteEnvelope(env *MessageEnvelope) error
	RemoteAddr() string
	Close() error
}
