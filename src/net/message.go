package net

import (
	"fmt"
	"math"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/table"
)

// Message id range. Ids are assigned by the sender and wrap from MaxID back
// to MinID. NullCorrelationID marks a message that answers no request.
const (
	MinID             = 1
	MaxID             = math.MaxInt32
	NullCorrelationID = 0
)

// ProtocolVersion is the version of the table network protocol spoken by
// this implementation.
const ProtocolVersion = 1

// MessageType tags the concrete type of a message.
type MessageType uint8

const (
	// GoodbyeMessageType ...
	GoodbyeMessageType MessageType = iota + 1
	// ErrorMessageType ...
	ErrorMessageType
	// ComponentIncrementMessageType ...
	ComponentIncrementMessageType
	// TableMessageType ...
	TableMessageType
	// HelloRequestMessageType ...
	HelloRequestMessageType
	// HelloResponseMessageType ...
	HelloResponseMessageType
	// BeginAuthenticationRequestMessageType ...
	BeginAuthenticationRequestMessageType
	// BeginAuthenticationResponseMessageType ...
	BeginAuthenticationResponseMessageType
	// EndAuthenticationMessageType ...
	EndAuthenticationMessageType
	// PlayersMessageType ...
	PlayersMessageType
)

// String ...
func (t MessageType) String() string {
	switch t {
	case GoodbyeMessageType:
		return "Goodbye"
	case ErrorMessageType:
		return "Error"
	case ComponentIncrementMessageType:
		return "ComponentIncrement"
	case TableMessageType:
		return "Table"
	case HelloRequestMessageType:
		return "HelloRequest"
	case HelloResponseMessageType:
		return "HelloResponse"
	case BeginAuthenticationRequestMessageType:
		return "BeginAuthenticationRequest"
	case BeginAuthenticationResponseMessageType:
		return "BeginAuthenticationResponse"
	case EndAuthenticationMessageType:
		return "EndAuthentication"
	case PlayersMessageType:
		return "Players"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// Message is implemented by every message of the protocol.
type Message interface {
	Type() MessageType
	Header() *MessageHeader
}

// MessageHeader carries the ids common to every message.
type MessageHeader struct {
	ID            int
	CorrelationID int
}

// Header ...
func (h *MessageHeader) Header() *MessageHeader {
	return h
}

// IsCorrelated reports whether the message answers an earlier request.
func (h *MessageHeader) IsCorrelated() bool {
	return h.CorrelationID != NullCorrelationID
}

type validator interface {
	Validate() error
}

// GoodbyeMessage announces that the sender is closing the connection.
type GoodbyeMessage struct {
	MessageHeader
}

// Type ...
func (m *GoodbyeMessage) Type() MessageType { return GoodbyeMessageType }

// ErrorMessage reports a failure to the peer. CorrelationID references the
// message that caused it.
type ErrorMessage struct {
	MessageHeader
	ErrorCode common.NetworkErrType
}

// Type ...
func (m *ErrorMessage) Type() MessageType { return ErrorMessageType }

// ComponentIncrementMessage carries a change to one component of the table.
type ComponentIncrementMessage struct {
	MessageHeader
	Path      table.ComponentPath
	Increment *table.ComponentIncrement
}

// Type ...
func (m *ComponentIncrementMessage) Type() MessageType { return ComponentIncrementMessageType }

// Validate ...
func (m *ComponentIncrementMessage) Validate() error {
	if m.Increment == nil {
		return fmt.Errorf("component increment message without an increment")
	}
	return m.Increment.Validate()
}

// TableMessage carries a snapshot of the whole tabletop.
type TableMessage struct {
	MessageHeader
	Memento *table.Memento
}

// Type ...
func (m *TableMessage) Type() MessageType { return TableMessageType }

// Validate ...
func (m *TableMessage) Validate() error {
	if m.Memento == nil {
		return fmt.Errorf("table message without a memento")
	}
	return nil
}

// HelloRequestMessage opens the handshake of a client with the server.
type HelloRequestMessage struct {
	MessageHeader
	SupportedProtocolVersion int
}

// Type ...
func (m *HelloRequestMessage) Type() MessageType { return HelloRequestMessageType }

// HelloResponseMessage answers a HelloRequestMessage.
type HelloResponseMessage struct {
	MessageHeader
	ChosenProtocolVersion int
}

// Type ...
func (m *HelloResponseMessage) Type() MessageType { return HelloResponseMessageType }

// BeginAuthenticationRequestMessage is the server's authentication
// challenge.
type BeginAuthenticationRequestMessage struct {
	MessageHeader
	Challenge []byte
	Salt      []byte
}

// Type ...
func (m *BeginAuthenticationRequestMessage) Type() MessageType {
	return BeginAuthenticationRequestMessageType
}

// BeginAuthenticationResponseMessage answers the challenge on behalf of a
// player.
type BeginAuthenticationResponseMessage struct {
	MessageHeader
	PlayerName string
	Response   []byte
}

// Type ...
func (m *BeginAuthenticationResponseMessage) Type() MessageType {
	return BeginAuthenticationResponseMessageType
}

// EndAuthenticationMessage confirms a successful authentication.
type EndAuthenticationMessage struct {
	MessageHeader
	ServerPlayerName string
}

// Type ...
func (m *EndAuthenticationMessage) Type() MessageType { return EndAuthenticationMessageType }

// PlayersMessage lists every player currently at the table.
type PlayersMessage struct {
	MessageHeader
	Players []string
}

// Type ...
func (m *PlayersMessage) Type() MessageType { return PlayersMessageType }

// NewMessage returns an empty message of the given type.
func NewMessage(t MessageType) (Message, error) {
	switch t {
	case GoodbyeMessageType:
		return &GoodbyeMessage{}, nil
	case ErrorMessageType:
		return &ErrorMessage{}, nil
	case ComponentIncrementMessageType:
		return &ComponentIncrementMessage{}, nil
	case TableMessageType:
		return &TableMessage{}, nil
	case HelloRequestMessageType:
		return &HelloRequestMessage{}, nil
	case HelloResponseMessageType:
		return &HelloResponseMessage{}, nil
	case BeginAuthenticationRequestMessageType:
		return &BeginAuthenticationRequestMessage{}, nil
	case BeginAuthenticationResponseMessageType:
		return &BeginAuthenticationResponseMessage{}, nil
	case EndAuthenticationMessageType:
		return &EndAuthenticationMessage{}, nil
	case PlayersMessageType:
		return &PlayersMessage{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %d", uint8(t))
	}
}
