package net

import (
	"context"
	"errors"
	"net"
	"time"
)

var (
	errNotTCP = errors.New("local address is not a TCP address")
)

// TCPStreamLayer implements the StreamLayer interface for plain TCP.
type TCPStreamLayer struct {
	timeout time.Duration
}

// NewTCPStreamLayer returns a TCP stream layer. A non-zero timeout bounds
// the time spent dialing.
func NewTCPStreamLayer(timeout time.Duration) *TCPStreamLayer {
	return &TCPStreamLayer{
		timeout: timeout,
	}
}

// Listen implements the StreamLayer interface.
func (t *TCPStreamLayer) Listen(addr string) (Listener, error) {
	list, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	tcpList, ok := list.(*net.TCPListener)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}

	return &tcpListener{listener: tcpList}, nil
}

// Dial implements the StreamLayer interface.
func (t *TCPStreamLayer) Dial(ctx context.Context, addr string) (Conn, error) {
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return newNetConn(conn), nil
}

type tcpListener struct {
	listener *net.TCPListener
}

// Accept implements the Listener interface.
func (l *tcpListener) Accept() (Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return newNetConn(conn), nil
}

// Addr implements the Listener interface.
func (l *tcpListener) Addr() string {
	return l.listener.Addr().String()
}

// Close implements the Listener interface.
func (l *tcpListener) Close() error {
	return l.listener.Close()
}
