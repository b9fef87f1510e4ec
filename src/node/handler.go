package node

import (
	"context"
	"errors"

	"github.com/mosaicnetworks/tablenet/src/net"
)

var (
	// ErrUnexpectedMessage is returned by a MessageHandler given a message
	// type it does not handle. The sender is told with an UnexpectedMessage
	// error.
	ErrUnexpectedMessage = errors.New("unexpected message")

	// ErrArgument is returned for calls with an illegal argument, such as
	// binding a player name twice.
	ErrArgument = errors.New("illegal argument")
)

// MessageHandler processes a message received from a remote node. It runs on
// the node layer; ctx carries the player name of the remote node, if bound.
type MessageHandler func(ctx context.Context, msg net.Message) error
