package net

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

// Header is the part of an envelope readable without decoding the body.
type Header struct {
	ID            int
	CorrelationID int
	Type          MessageType
}

// MessageEnvelope is the unit of transfer between two nodes.
type MessageEnvelope struct {
	Header Header
	Body   []byte

	message Message
}

// NewMessageEnvelope encodes msg into a new envelope.
func NewMessageEnvelope(msg Message) (*MessageEnvelope, error) {
	var body []byte
	enc := codec.NewEncoderBytes(&body, msgpackHandle())
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("encoding %s message: %v", msg.Type(), err)
	}

	h := msg.Header()
	return &MessageEnvelope{
		Header: Header{
			ID:            h.ID,
			CorrelationID: h.CorrelationID,
			Type:          msg.Type(),
		},
		Body:    body,
		message: msg,
	}, nil
}

// Message decodes the body of the envelope. The result is cached.
func (e *MessageEnvelope) Message() (Message, error) {
	if e.message != nil {
		return e.message, nil
	}

	msg, err := NewMessage(e.Header.Type)
	if err != nil {
		return nil, err
	}

	dec := codec.NewDecoderBytes(e.Body, msgpackHandle())
	if err := dec.Decode(msg); err != nil {
		return nil, fmt.Errorf("decoding %s message: %v", e.Header.Type, err)
	}

	if v, ok := msg.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s message: %v", e.Header.Type, err)
		}
	}

	// The envelope header is authoritative.
	h := msg.Header()
	h.ID = e.Header.ID
	h.CorrelationID = e.Header.CorrelationID

	e.message = msg
	return msg, nil
}

// Marshal encodes the envelope for the wire.
func (e *MessageEnvelope) Marshal() ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, msgpackHandle())
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal decodes an envelope produced by Marshal.
func (e *MessageEnvelope) Unmarshal(data []byte) error {
	dec := codec.NewDecoderBytes(data, msgpackHandle())
	return dec.Decode(e)
}

// String ...
func (e *MessageEnvelope) String() string {
	return fmt.Sprintf("%s(id=%d, correlationId=%d)",
		e.Header.Type, e.Header.ID, e.Header.CorrelationID)
}

func msgpackHandle() *codec.MsgpackHandle {
	mh := &codec.MsgpackHandle{}
	mh.RawToString = true
	mh.WriteExt = true
	return mh
}
