package net

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrTransportOpen is returned when Open is called more than once.
	ErrTransportOpen = errors.New("transport already open")
)

// TransportLayer is the connection factory of a node.
type TransportLayer interface {
	// Open starts listening on addr (server) or connects to addr (client).
	// It returns once the transport is ready or failed.
	Open(ctx context.Context, addr string) error

	// Close stops every connection of the transport and waits for their
	// services to be stopped.
	Close() error
}

// Transport implements TransportLayer on top of a StreamLayer. A server
// transport accepts any number of connections; a client transport dials
// exactly one.
type Transport struct {
	logger *logrus.Entry

	stream  StreamLayer
	factory ServiceFactory
	server  bool

	lock     sync.Mutex
	opened   bool
	shutdown bool
	listener Listener
	conns    map[*serviceConn]struct{}

	wg sync.WaitGroup
}

// NewServerTransport returns a transport accepting connections from stream.
func NewServerTransport(stream StreamLayer, factory ServiceFactory, logger *logrus.Entry) *Transport {
	return newTransport(stream, factory, true, logger)
}

// NewClientTransport returns a transport dialing a single connection through
// stream.
func NewClientTransport(stream StreamLayer, factory ServiceFactory, logger *logrus.Entry) *Transport {
	return newTransport(stream, factory, false, logger)
}

func newTransport(stream StreamLayer, factory ServiceFactory, server bool, logger *logrus.Entry) *Transport {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Transport{
		logger:  logger,
		stream:  stream,
		factory: factory,
		server:  server,
		conns:   make(map[*serviceConn]struct{}),
	}
}

// Open implements the TransportLayer interface. For a client transport, the
// Service of the connection is started before Open returns.
func (t *Transport) Open(ctx context.Context, addr string) error {
	t.lock.Lock()

	if t.shutdown {
		t.lock.Unlock()
		return ErrTransportShutdown
	}
	if t.opened {
		t.lock.Unlock()
		return ErrTransportOpen
	}

	if t.server {
		defer t.lock.Unlock()

		listener, err := t.stream.Listen(addr)
		if err != nil {
			return err
		}
		t.listener = listener
		t.opened = true

		t.logger.WithField("addr", listener.Addr()).Debug("Listening")

		t.wg.Add(1)
		go t.listen(listener)

		return nil
	}

	conn, err := t.stream.Dial(ctx, addr)
	if err != nil {
		t.lock.Unlock()
		return err
	}
	t.opened = true

	t.logger.WithField("addr", addr).Debug("Connected")

	sc := t.register(conn)
	t.lock.Unlock()

	t.serve(sc)

	return nil
}

// LocalAddr returns the address a server transport listens on, or the empty
// string.
func (t *Transport) LocalAddr() string {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.listener == nil {
		return ""
	}
	return t.listener.Addr()
}

// IsShutdown is used to check if the transport is shutdown.
func (t *Transport) IsShutdown() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.shutdown
}

// Close implements the TransportLayer interface.
func (t *Transport) Close() error {
	t.lock.Lock()
	if t.shutdown {
		t.lock.Unlock()
		return nil
	}
	t.shutdown = true

	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}

	conns := make([]*serviceConn, 0, len(t.conns))
	for c := range t.conns {
		conns = append(conns, c)
	}
	t.lock.Unlock()

	for _, c := range conns {
		c.StopService()
	}

	t.wg.Wait()

	return err
}

// listen accepts incoming connections until the listener is closed.
func (t *Transport) listen(listener Listener) {
	defer t.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.IsShutdown() {
				return
			}
			t.logger.WithError(err).Error("Failed to accept connection")
			if err == ErrListenerClosed {
				return
			}
			continue
		}

		t.logger.WithField("from", conn.RemoteAddr()).Debug("Accepted connection")

		t.lock.Lock()
		if t.shutdown {
			t.lock.Unlock()
			conn.Close()
			return
		}
		sc := t.register(conn)
		t.lock.Unlock()

		t.serve(sc)
	}
}

// register tracks a new connection. Must be called with the lock held.
func (t *Transport) register(conn Conn) *serviceConn {
	sc := newServiceConn(conn, t.factory(), t.logger)
	t.conns[sc] = struct{}{}
	t.wg.Add(1)
	return sc
}

// serve starts the Service of sc and reads the connection in its own
// goroutine.
func (t *Transport) serve(sc *serviceConn) {
	sc.start()

	go func() {
		defer t.wg.Done()
		sc.run()

		t.lock.Lock()
		delete(t.conns, sc)
		t.lock.Unlock()
	}()
}
