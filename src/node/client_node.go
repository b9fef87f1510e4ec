package node

import (
	"context"
	"time"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/mosaicnetworks/tablenet/src/table"
)

// ClientNode joins a table network hosted by a ServerNode.
type ClientNode struct {
	*LocalNode

	server      *RemoteNode
	handshakeCh chan error
}

// NewClientNode returns a client node sharing env through stream.
func NewClientNode(env *table.Environment,
	stream net.StreamLayer,
	controller Controller,
	conf *Config) *ClientNode {

	c := &ClientNode{}
	c.LocalNode = newLocalNode(env, stream, controller, conf, c)
	return c
}

func (c *ClientNode) connecting(ctx context.Context) error {
	return nil
}

func (c *ClientNode) createTransportLayer(ctx context.Context) net.TransportLayer {
	return net.NewClientTransport(c.stream, c.serviceFactory(), c.logger.WithField("prefix", "transport"))
}

// connected runs the handshake with the server and waits for its outcome.
func (c *ClientNode) connected(ctx context.Context) error {
	resultCh := make(chan error, 1)

	err := c.layer.SyncExec(ctx, func(lctx context.Context) error {
		return c.beginHandshake(lctx, resultCh)
	})
	if err != nil {
		return err
	}

	timeout := c.conf.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-resultCh:
		return err
	case <-timer.C:
		return common.NewNetworkErr(common.TransportError, "handshake timed out", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ClientNode) beginHandshake(ctx context.Context, resultCh chan error) error {
	if c.server == nil || !c.server.IsOpen() {
		return common.NewNetworkErr(common.NetworkDisconnected, "connection to the server is closed", nil)
	}

	c.handshakeCh = resultCh

	hello := &net.HelloRequestMessage{SupportedProtocolVersion: net.ProtocolVersion}
	return c.server.sendMessage(ctx, hello, c.handleHelloResponse)
}

// endHandshake reports the outcome of the handshake, once. On failure the
// connection to the server is closed.
func (c *ClientNode) endHandshake(ctx context.Context, err error) {
	if c.handshakeCh == nil {
		return
	}
	c.handshakeCh <- err
	c.handshakeCh = nil

	if err != nil && c.server != nil && c.server.IsOpen() {
		c.server.close(ctx, err)
	}
}

func (c *ClientNode) handleHelloResponse(ctx context.Context, msg net.Message) error {
	switch m := msg.(type) {
	case *net.HelloResponseMessage:
		if m.ChosenProtocolVersion != net.ProtocolVersion {
			c.endHandshake(ctx, common.NewNetworkErr(common.UnsupportedProtocolVersion, "server chose an unknown protocol version", nil))
		}
		return nil
	case *net.ErrorMessage:
		c.endHandshake(ctx, common.NewNetworkErr(m.ErrorCode, "server rejected hello", nil))
		return nil
	default:
		return ErrUnexpectedMessage
	}
}

func (c *ClientNode) handleBeginAuthenticationRequest(ctx context.Context, msg net.Message) error {
	m, ok := msg.(*net.BeginAuthenticationRequestMessage)
	if !ok || c.server.IsBound() {
		return ErrUnexpectedMessage
	}

	auth := newAuthenticator(c.password, m.Salt)
	defer auth.dispose()

	resp := &net.BeginAuthenticationResponseMessage{
		PlayerName: c.playerName,
		Response:   auth.respond(m.Challenge),
	}
	return c.server.reply(ctx, m.ID, resp, c.handleEndAuthentication)
}

func (c *ClientNode) handleEndAuthentication(ctx context.Context, msg net.Message) error {
	switch m := msg.(type) {
	case *net.EndAuthenticationMessage:
		c.endHandshake(ctx, c.server.bind(ctx, m.ServerPlayerName))
		return nil
	case *net.ErrorMessage:
		c.endHandshake(ctx, common.NewNetworkErr(m.ErrorCode, "server rejected authentication", nil))
		return nil
	default:
		return ErrUnexpectedMessage
	}
}

func (c *ClientNode) handlePlayers(ctx context.Context, msg net.Message) error {
	m, ok := msg.(*net.PlayersMessage)
	if !ok {
		return ErrUnexpectedMessage
	}
	c.players = m.Players
	return nil
}

func (c *ClientNode) disconnecting(ctx context.Context) {}

func (c *ClientNode) disconnected(ctx context.Context) {
	c.server = nil
}

func (c *ClientNode) remoteNodeBound(ctx context.Context, r *RemoteNode) {}

func (c *ClientNode) remoteNodeUnbound(ctx context.Context, r *RemoteNode) {}

func (c *ClientNode) newRemoteNode() *RemoteNode {
	role := &clientRemoteNode{client: c}
	role.remote = newRemoteNode(c.LocalNode, role)
	role.remote.mustRegister(net.BeginAuthenticationRequestMessageType, c.handleBeginAuthenticationRequest)
	role.remote.mustRegister(net.PlayersMessageType, c.handlePlayers)
	return role.remote
}

// clientRemoteNode is the role of the remote node standing for the server.
type clientRemoteNode struct {
	client *ClientNode
	remote *RemoteNode
}

func (cr *clientRemoteNode) opened(ctx context.Context) {
	cr.client.server = cr.remote
}

// closed fails a pending handshake, or disconnects the client if the server
// went away.
func (cr *clientRemoteNode) closed(ctx context.Context, err error) {
	c := cr.client

	if c.handshakeCh != nil {
		if err == nil {
			err = common.NewNetworkErr(common.NetworkDisconnected, "server closed the connection", nil)
		}
		c.endHandshake(ctx, err)
		return
	}

	if c.getState() == Connected {
		c.BeginDisconnect(err)
	}
}
