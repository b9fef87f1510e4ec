package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// NetworkErrType classifies failures of the table network.
type NetworkErrType uint32

const (
	// UnspecifiedError ...
	UnspecifiedError NetworkErrType = iota
	// IllegalConnectionState is returned when an operation is not allowed in
	// the current connection state of a node.
	IllegalConnectionState
	// NetworkDisconnected ...
	NetworkDisconnected
	// TransportError wraps failures of the transport layer.
	TransportError
	// Interrupted is returned when a connect operation is cancelled.
	Interrupted
	// UnexpectedPeerTermination is the close cause of a peer that went away
	// without saying goodbye.
	UnexpectedPeerTermination
	// UnknownMessage is sent back when a message cannot be deserialized.
	UnknownMessage
	// UnexpectedMessage is sent back when a handler does not accept the
	// concrete type of the message it was given.
	UnexpectedMessage
	// UnhandledMessage is sent back when no handler exists for a message.
	UnhandledMessage
	// UnsupportedProtocolVersion ...
	UnsupportedProtocolVersion
	// AuthenticationFailed ...
	AuthenticationFailed
	// DuplicatePlayerName ...
	DuplicatePlayerName
)

// String ...
func (t NetworkErrType) String() string {
	switch t {
	case UnspecifiedError:
		return "UNSPECIFIED_ERROR"
	case IllegalConnectionState:
		return "ILLEGAL_CONNECTION_STATE"
	case NetworkDisconnected:
		return "NETWORK_DISCONNECTED"
	case TransportError:
		return "TRANSPORT_ERROR"
	case Interrupted:
		return "INTERRUPTED"
	case UnexpectedPeerTermination:
		return "UNEXPECTED_PEER_TERMINATION"
	case UnknownMessage:
		return "UNKNOWN_MESSAGE"
	case UnexpectedMessage:
		return "UNEXPECTED_MESSAGE"
	case UnhandledMessage:
		return "UNHANDLED_MESSAGE"
	case UnsupportedProtocolVersion:
		return "UNSUPPORTED_PROTOCOL_VERSION"
	case AuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	case DuplicatePlayerName:
		return "DUPLICATE_PLAYER_NAME"
	default:
		return "UNKNOWN"
	}
}

// NetworkErr is a typed table network error, optionally wrapping the error
// that caused it.
type NetworkErr struct {
	errType NetworkErrType
	msg     string
	cause   error
}

// NewNetworkErr ...
func NewNetworkErr(errType NetworkErrType, msg string, cause error) NetworkErr {
	return NetworkErr{
		errType: errType,
		msg:     msg,
		cause:   cause,
	}
}

// Type returns the classification of the error.
func (e NetworkErr) Type() NetworkErrType {
	return e.errType
}

// Error ...
func (e NetworkErr) Error() string {
	s := e.errType.String()
	if e.msg != "" {
		s = fmt.Sprintf("%s: %s", s, e.msg)
	}
	if e.cause != nil {
		s = fmt.Sprintf("%s: %v", s, e.cause)
	}
	return s
}

// Cause returns the wrapped error, if any.
func (e NetworkErr) Cause() error {
	return e.cause
}

// Unwrap ...
func (e NetworkErr) Unwrap() error {
	return e.cause
}

// IsNetwork checks whether err, or any error it wraps, is a NetworkErr of the
// provided type.
func IsNetwork(err error, t NetworkErrType) bool {
	var netErr NetworkErr
	if !errors.As(err, &netErr) {
		return false
	}
	return netErr.errType == t
}

// NetworkErrTypeOf returns the type of the first NetworkErr found in the
// chain of err, or UnspecifiedError.
func NetworkErrTypeOf(err error) NetworkErrType {
	var netErr NetworkErr
	if errors.As(err, &netErr) {
		return netErr.errType
	}
	return UnspecifiedError
}
