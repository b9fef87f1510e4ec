package net

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const (
	sendQueueSize = 256
)

var (
	// ErrServiceStopped is returned by SendMessage once the service is
	// stopped.
	ErrServiceStopped = errors.New("service stopped")
)

// serviceConn binds a Service to a Conn. It implements ServiceContext.
type serviceConn struct {
	conn    Conn
	service Service
	logger  *logrus.Entry

	sendCh     chan *MessageEnvelope
	stopCh     chan struct{}
	stopOnce   sync.Once
	writerDone chan struct{}

	// set when the service asked to stop, as opposed to the connection
	// failing or the peer leaving.
	localStop int32

	writeErrLock sync.Mutex
	writeErr     error
}

func newServiceConn(conn Conn, service Service, logger *logrus.Entry) *serviceConn {
	return &serviceConn{
		conn:       conn,
		service:    service,
		logger:     logger.WithField("remote", conn.RemoteAddr()),
		sendCh:     make(chan *MessageEnvelope, sendQueueSize),
		stopCh:     make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// SendMessage implements the ServiceContext interface.
func (s *serviceConn) SendMessage(env *MessageEnvelope) error {
	select {
	case <-s.stopCh:
		return ErrServiceStopped
	default:
	}

	select {
	case s.sendCh <- env:
		return nil
	case <-s.stopCh:
		return ErrServiceStopped
	}
}

// StopService implements the ServiceContext interface.
func (s *serviceConn) StopService() {
	atomic.StoreInt32(&s.localStop, 1)
	s.stop()
}

func (s *serviceConn) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// start launches the writer and notifies the service.
func (s *serviceConn) start() {
	go s.write()
	s.service.Started(s)
}

// run reads the connection until it is closed, then stops the service.
func (s *serviceConn) run() {
	var err error
	peerStopped := false

	for {
		env, rerr := s.conn.ReadEnvelope()
		if rerr != nil {
			switch {
			case atomic.LoadInt32(&s.localStop) == 1:
			case rerr == io.EOF:
				peerStopped = true
			default:
				err = rerr
			}
			break
		}

		s.logger.WithField("message", env).Debug("Received")

		s.service.MessageReceived(env)
	}

	s.stop()
	<-s.writerDone

	if err == nil && !peerStopped {
		err = s.failure()
	}

	if err != nil {
		s.logger.WithError(err).Debug("Connection failed")
	}

	if peerStopped {
		s.service.PeerStopped()
	}
	s.service.Stopped(err)
}

// write sends queued envelopes until the service is stopped, then flushes
// what is left and closes the connection.
func (s *serviceConn) write() {
	defer close(s.writerDone)
	defer s.conn.Close()

	for {
		select {
		case env := <-s.sendCh:
			if !s.writeEnvelope(env) {
				return
			}
		case <-s.stopCh:
			for {
				select {
				case env := <-s.sendCh:
					if !s.writeEnvelope(env) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *serviceConn) writeEnvelope(env *MessageEnvelope) bool {
	if err := s.conn.WriteEnvelope(env); err != nil {
		s.writeErrLock.Lock()
		s.writeErr = err
		s.writeErrLock.Unlock()
		s.stop()
		return false
	}
	s.logger.WithField("message", env).Debug("Sent")
	return true
}

func (s *serviceConn) failure() error {
	s.writeErrLock.Lock()
	defer s.writeErrLock.Unlock()
	return s.writeErr
}
