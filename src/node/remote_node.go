package node

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// remoteNodeRole holds the behaviour that differs between the remote nodes of
// a server and of a client.
type remoteNodeRole interface {
	// opened is called once the connection to the remote node is up.
	opened(ctx context.Context)

	// closed is called once the connection is gone, after the remote node
	// was unbound. err is the close cause, or nil.
	closed(ctx context.Context, err error)
}

// RemoteNode is the local proxy of a peer connected to a LocalNode. It is
// created when the connection is accepted (server) or dialed (client), opened
// when the transport starts it, bound when the peer's player name is known,
// and closed when the connection stops.
//
// All methods must be called on the node layer.
type RemoteNode struct {
	local  *LocalNode
	role   remoteNodeRole
	logger *logrus.Entry

	sc         net.ServiceContext
	wasStarted bool
	playerName string
	bound      bool
	closeErr   error
	goodbye    bool

	nextID               int
	responseHandlers     map[int]MessageHandler
	uncorrelatedHandlers map[net.MessageType]MessageHandler

	table *RemoteNetworkTable
}

func newRemoteNode(local *LocalNode, role remoteNodeRole) *RemoteNode {
	r := &RemoteNode{
		local:                local,
		role:                 role,
		logger:               local.logger,
		nextID:               net.MinID + rand.Intn(net.MaxID-net.MinID+1),
		responseHandlers:     make(map[int]MessageHandler),
		uncorrelatedHandlers: make(map[net.MessageType]MessageHandler),
	}

	r.table = newRemoteNetworkTable(r)

	r.mustRegister(net.ComponentIncrementMessageType, r.handleComponentIncrement)
	r.mustRegister(net.TableMessageType, r.handleTable)
	r.mustRegister(net.ErrorMessageType, r.handleError)
	r.mustRegister(net.GoodbyeMessageType, r.handleGoodbye)

	return r
}

// PlayerName returns the name the remote node is bound to, or "".
func (r *RemoteNode) PlayerName() string {
	return r.playerName
}

// IsBound reports whether the remote node is bound to a player name.
func (r *RemoteNode) IsBound() bool {
	return r.bound
}

// IsOpen reports whether the connection to the remote node is up.
func (r *RemoteNode) IsOpen() bool {
	return r.sc != nil
}

// CloseErr returns the first error the remote node was closed with.
func (r *RemoteNode) CloseErr() error {
	return r.closeErr
}

// Table returns the network table through which changes reach the remote
// node.
func (r *RemoteNode) Table() *RemoteNetworkTable {
	return r.table
}

// registerUncorrelatedHandler installs the handler of every message of type
// t that answers no request of ours.
func (r *RemoteNode) registerUncorrelatedHandler(t net.MessageType, h MessageHandler) error {
	if _, ok := r.uncorrelatedHandlers[t]; ok {
		return errors.Wrapf(ErrArgument, "handler already registered for %s messages", t)
	}
	r.uncorrelatedHandlers[t] = h
	return nil
}

func (r *RemoteNode) mustRegister(t net.MessageType, h MessageHandler) {
	if err := r.registerUncorrelatedHandler(t, h); err != nil {
		panic(err)
	}
}

// started is called by the transport once the connection is up.
func (r *RemoteNode) started(ctx context.Context, sc net.ServiceContext) error {
	r.local.assertNodeLayer(ctx)

	if r.wasStarted {
		return errors.Wrap(ErrArgument, "remote node already started")
	}
	r.wasStarted = true
	r.sc = sc

	r.local.remoteNodeOpened(ctx, r)
	r.role.opened(ctx)

	return nil
}

// bind associates the remote node with playerName and registers it with the
// local node.
func (r *RemoteNode) bind(ctx context.Context, playerName string) error {
	r.local.assertNodeLayer(ctx)

	if r.sc == nil {
		return common.NewNetworkErr(common.NetworkDisconnected, "remote node is not open", nil)
	}
	if r.bound {
		return errors.Wrapf(ErrArgument, "remote node already bound to %s", r.playerName)
	}

	r.playerName = playerName
	if err := r.local.bindRemoteNode(ctx, r); err != nil {
		r.playerName = ""
		return err
	}
	r.bound = true

	r.logger = r.local.logger.WithField("remote_player", playerName)
	r.logger.Debug("Remote node bound")

	return nil
}

// close stops the connection. The first non-nil err is kept as the close
// cause.
func (r *RemoteNode) close(ctx context.Context, err error) error {
	r.local.assertNodeLayer(ctx)

	if r.sc == nil {
		return common.NewNetworkErr(common.NetworkDisconnected, "remote node is not open", nil)
	}

	if r.closeErr == nil && err != nil {
		r.closeErr = err
	}

	r.sc.StopService()

	return nil
}

// sayGoodbye tells the remote node we are leaving and closes normally.
func (r *RemoteNode) sayGoodbye(ctx context.Context) {
	if err := r.sendMessage(ctx, &net.GoodbyeMessage{}, nil); err != nil {
		r.logger.WithError(err).Debug("Failed to say goodbye")
	}
	r.close(ctx, nil)
}

// sendMessage assigns the next id to msg and sends it. If handler is not nil,
// it is called with the single reply correlated to msg. The correlation id of
// msg is left as set by the caller.
func (r *RemoteNode) sendMessage(ctx context.Context, msg net.Message, handler MessageHandler) error {
	r.local.assertNodeLayer(ctx)

	if r.sc == nil {
		return common.NewNetworkErr(common.NetworkDisconnected, "remote node is not open", nil)
	}

	header := msg.Header()
	header.ID = r.nextMessageID()

	env, err := net.NewMessageEnvelope(msg)
	if err != nil {
		return err
	}

	if handler != nil {
		r.responseHandlers[header.ID] = handler
	}

	if err := r.sc.SendMessage(env); err != nil {
		delete(r.responseHandlers, header.ID)
		return common.NewNetworkErr(common.TransportError, fmt.Sprintf("sending %s", env), err)
	}

	r.local.stats.messagesSent++

	return nil
}

// reply sends msg as the answer to the message with id correlationID.
func (r *RemoteNode) reply(ctx context.Context, correlationID int, msg net.Message, handler MessageHandler) error {
	msg.Header().CorrelationID = correlationID
	return r.sendMessage(ctx, msg, handler)
}

func (r *RemoteNode) sendError(ctx context.Context, correlationID int, code common.NetworkErrType) {
	err := r.reply(ctx, correlationID, &net.ErrorMessage{ErrorCode: code}, nil)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to send error message")
	}
}

func (r *RemoteNode) nextMessageID() int {
	id := r.nextID
	if r.nextID >= net.MaxID {
		r.nextID = net.MinID
	} else {
		r.nextID++
	}
	return id
}

// messageReceived decodes and dispatches an envelope received from the remote
// node.
func (r *RemoteNode) messageReceived(ctx context.Context, env *net.MessageEnvelope) {
	r.local.assertNodeLayer(ctx)

	r.local.stats.messagesReceived++

	msg, err := env.Message()
	if err != nil {
		r.logger.WithError(err).WithField("message", env).Warn("Failed to decode message")
		r.sendError(ctx, env.Header.ID, common.UnknownMessage)
		return
	}

	if r.playerName != "" {
		ctx = WithPlayer(ctx, r.playerName)
	}

	r.dispatch(ctx, msg)
}

func (r *RemoteNode) dispatch(ctx context.Context, msg net.Message) {
	header := msg.Header()

	var handler MessageHandler
	if header.IsCorrelated() {
		if h, ok := r.responseHandlers[header.CorrelationID]; ok {
			delete(r.responseHandlers, header.CorrelationID)
			handler = h
		}
	}
	if handler == nil {
		handler = r.uncorrelatedHandlers[msg.Type()]
	}

	logger := r.logger.WithFields(logrus.Fields{
		"type":           msg.Type(),
		"id":             header.ID,
		"correlation_id": header.CorrelationID,
	})

	if handler == nil {
		logger.Warn("Unhandled message")
		r.local.stats.messagesUnhandled++
		if msg.Type() != net.ErrorMessageType {
			r.sendError(ctx, header.ID, common.UnhandledMessage)
		}
		return
	}

	err := r.invoke(ctx, handler, msg)
	switch {
	case err == nil:
	case err == ErrUnexpectedMessage:
		logger.Warn("Unexpected message")
		r.local.stats.messagesUnhandled++
		if msg.Type() != net.ErrorMessageType {
			r.sendError(ctx, header.ID, common.UnexpectedMessage)
		}
	default:
		logger.WithError(err).Error("Failed to handle message")
	}
}

func (r *RemoteNode) invoke(ctx context.Context, handler MessageHandler, msg net.Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("message handler panicked: %v", p)
		}
	}()
	return handler(ctx, msg)
}

// peerStopped is called when the remote node closed the connection. Unless it
// said goodbye first, this is an unexpected termination.
func (r *RemoteNode) peerStopped(ctx context.Context) {
	r.local.assertNodeLayer(ctx)

	var err error
	if !r.goodbye {
		err = common.NewNetworkErr(common.UnexpectedPeerTermination, r.playerName, nil)
	}

	if cerr := r.close(ctx, err); cerr != nil {
		r.logger.WithError(cerr).Debug("Peer stopped")
	}
}

// stopped is called once the connection is gone. err is the transport
// failure, if any.
func (r *RemoteNode) stopped(ctx context.Context, err error) {
	r.local.assertNodeLayer(ctx)

	if err != nil && r.closeErr == nil {
		r.closeErr = common.NewNetworkErr(common.TransportError, "connection failed", err)
	}

	if r.bound {
		if uerr := r.local.unbindRemoteNode(ctx, r); uerr != nil {
			r.logger.WithError(uerr).Warn("Failed to unbind remote node")
		}
		r.bound = false
	}

	r.role.closed(ctx, r.closeErr)

	r.local.remoteNodeClosed(ctx, r)
	r.sc = nil

	r.logger.WithError(r.closeErr).Debug("Remote node closed")
}

func (r *RemoteNode) handleComponentIncrement(ctx context.Context, msg net.Message) error {
	m, ok := msg.(*net.ComponentIncrementMessage)
	if !ok {
		return ErrUnexpectedMessage
	}
	if !r.bound {
		r.logger.Warn("Ignoring component increment from unbound remote node")
		return nil
	}
	r.local.tableManager.IncrementComponentState(ctx, r.table, m.Path, m.Increment)
	return nil
}

func (r *RemoteNode) handleTable(ctx context.Context, msg net.Message) error {
	m, ok := msg.(*net.TableMessage)
	if !ok {
		return ErrUnexpectedMessage
	}
	if !r.bound {
		r.logger.Warn("Ignoring table from unbound remote node")
		return nil
	}
	r.local.tableManager.SetTableState(ctx, r.table, m.Memento)
	return nil
}

func (r *RemoteNode) handleError(ctx context.Context, msg net.Message) error {
	m, ok := msg.(*net.ErrorMessage)
	if !ok {
		return ErrUnexpectedMessage
	}
	r.logger.WithFields(logrus.Fields{
		"error_code":     m.ErrorCode,
		"correlation_id": m.CorrelationID,
	}).Warn("Received error message")
	return nil
}

func (r *RemoteNode) handleGoodbye(ctx context.Context, msg net.Message) error {
	if _, ok := msg.(*net.GoodbyeMessage); !ok {
		return ErrUnexpectedMessage
	}
	r.goodbye = true
	return r.close(ctx, nil)
}
