package net

// Service consumes the events of one connection. A Transport calls its
// methods from a single goroutine, in order: Started first, then any number
// of MessageReceived, optionally PeerStopped, and finally Stopped.
type Service interface {
	// Started is called once the connection is established. ctx remains
	// valid until Stopped returns.
	Started(ctx ServiceContext)

	// MessageReceived is called for every envelope read from the
	// connection.
	MessageReceived(env *MessageEnvelope)

	// PeerStopped is called when the peer closed the connection in an
	// orderly fashion.
	PeerStopped()

	// Stopped is called once the connection is closed. err is nil unless
	// the connection failed.
	Stopped(err error)
}

// ServiceContext is the handle through which a Service acts on its
// connection.
type ServiceContext interface {
	// SendMessage queues env for delivery to the peer.
	SendMessage(env *MessageEnvelope) error

	// StopService closes the connection once queued envelopes have been
	// written. It is safe to call more than once.
	StopService()
}

// ServiceFactory creates the Service of a new connection.
type ServiceFactory func() Service
