package net

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
)

// InmemStreamLayer connects listeners and dialers sharing the same instance
// through in-memory pipes. It is used for testing.
type InmemStreamLayer struct {
	sync.Mutex
	listeners map[string]*inmemListener
}

// NewInmemStreamLayer returns an empty in-memory network.
func NewInmemStreamLayer() *InmemStreamLayer {
	return &InmemStreamLayer{
		listeners: make(map[string]*inmemListener),
	}
}

// NewInmemAddr returns a random address suitable for the inmem stream layer.
func NewInmemAddr() string {
	return uuid.New().String()
}

// Listen implements the StreamLayer interface. An empty addr binds a random
// address.
func (s *InmemStreamLayer) Listen(addr string) (Listener, error) {
	s.Lock()
	defer s.Unlock()

	if addr == "" {
		addr = NewInmemAddr()
	}

	if _, ok := s.listeners[addr]; ok {
		return nil, fmt.Errorf("address %s already in use", addr)
	}

	l := &inmemListener{
		layer:    s,
		addr:     addr,
		acceptCh: make(chan net.Conn),
		closeCh:  make(chan struct{}),
	}
	s.listeners[addr] = l

	return l, nil
}

// Dial implements the StreamLayer interface.
func (s *InmemStreamLayer) Dial(ctx context.Context, addr string) (Conn, error) {
	s.Lock()
	l, ok := s.listeners[addr]
	s.Unlock()

	if !ok {
		return nil, fmt.Errorf("connection refused: %s", addr)
	}

	local, remote := net.Pipe()

	select {
	case l.acceptCh <- remote:
		return newNetConn(local), nil
	case <-l.closeCh:
	case <-ctx.Done():
		local.Close()
		remote.Close()
		return nil, ctx.Err()
	}

	local.Close()
	remote.Close()
	return nil, fmt.Errorf("connection refused: %s", addr)
}

func (s *InmemStreamLayer) remove(addr string) {
	s.Lock()
	defer s.Unlock()
	delete(s.listeners, addr)
}

type inmemListener struct {
	layer     *InmemStreamLayer
	addr      string
	acceptCh  chan net.Conn
	closeCh   chan struct{}
	closeOnce sync.Once
}

// Accept implements the Listener interface.
func (l *inmemListener) Accept() (Conn, error) {
	select {
	case conn := <-l.acceptCh:
		return newNetConn(conn), nil
	case <-l.closeCh:
		return nil, ErrListenerClosed
	}
}

// Addr implements the Listener interface.
func (l *inmemListener) Addr() string {
	return l.addr
}

// Close implements the Listener interface.
func (l *inmemListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.layer.remove(l.addr)
	})
	return nil
}
