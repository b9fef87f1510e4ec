// Package net implements the messages exchanged by table network nodes and
// the transports that carry them.
//
// Messages
//
// Every message embeds a MessageHeader holding the id assigned by its sender
// and, for replies, the id of the request it answers (CorrelationID).
// Messages travel inside a MessageEnvelope whose header repeats the ids and the
// MessageType, so the receiver can route a message before decoding its body.
// Bodies are encoded with msgpack and decoded lazily by
// MessageEnvelope.Message.
//
// Transports
//
// A TransportLayer is opened on an address and either accepts connections
// (server) or dials a single one (client). Each connection is handed to a
// Service created by a ServiceFactory. The Service is notified when the
// connection starts, when an envelope arrives, when the peer goes away and
// when the connection is stopped. All notifications for one connection are
// made from a single goroutine, in order. The Service answers through its
// ServiceContext.
//
// Connections are provided by a StreamLayer. There are three
// implementations:
//
// - Inmem: in-memory pipes, used for testing
//
// - TCP: msgpack stream over plain TCP
//
// - WebSocket: one msgpack encoded envelope per binary WebSocket frame
package net
