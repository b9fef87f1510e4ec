package node

import (
	"context"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/mosaicnetworks/tablenet/src/table"
)

// ServerNode hosts a table network. It listens for clients, authenticates
// them, and relays the changes of every player to all the others.
type ServerNode struct {
	*LocalNode

	salt []byte
	auth *authenticator
}

// NewServerNode returns a server node sharing env through stream.
func NewServerNode(env *table.Environment,
	stream net.StreamLayer,
	controller Controller,
	conf *Config) *ServerNode {

	s := &ServerNode{}
	s.LocalNode = newLocalNode(env, stream, controller, conf, s)
	return s
}

// LocalAddr returns the address the server listens on, or "" if it is not
// connected.
func (s *ServerNode) LocalAddr() string {
	var addr string
	s.query("local address", func(ctx context.Context) error {
		if t, ok := s.transport.(*net.Transport); ok {
			addr = t.LocalAddr()
		}
		return nil
	})
	return addr
}

func (s *ServerNode) connecting(ctx context.Context) error {
	salt, err := randomBytes(saltSize)
	if err != nil {
		return err
	}
	s.salt = salt
	s.auth = newAuthenticator(s.password, salt)
	return nil
}

func (s *ServerNode) createTransportLayer(ctx context.Context) net.TransportLayer {
	return net.NewServerTransport(s.stream, s.serviceFactory(), s.logger.WithField("prefix", "transport"))
}

func (s *ServerNode) connected(ctx context.Context) error {
	return nil
}

func (s *ServerNode) disconnecting(ctx context.Context) {}

func (s *ServerNode) disconnected(ctx context.Context) {
	if s.auth != nil {
		s.auth.dispose()
		s.auth = nil
	}
}

// remoteNodeBound sends the table to the new player and tells everybody who
// is at the table.
func (s *ServerNode) remoteNodeBound(ctx context.Context, r *RemoteNode) {
	if s.localTable != nil {
		memento, seq := s.localTable.Snapshot()
		r.table.sendSnapshot(ctx, memento, seq)
	}
	s.broadcastPlayers(ctx)
}

func (s *ServerNode) remoteNodeUnbound(ctx context.Context, r *RemoteNode) {
	s.broadcastPlayers(ctx)
}

func (s *ServerNode) broadcastPlayers(ctx context.Context) {
	s.players = s.boundPlayers()

	if s.getState() != Connected {
		return
	}

	for _, r := range s.remoteNodes {
		players := make([]string, len(s.players))
		copy(players, s.players)
		if err := r.sendMessage(ctx, &net.PlayersMessage{Players: players}, nil); err != nil {
			r.logger.WithError(err).Warn("Failed to send players")
		}
	}
}

func (s *ServerNode) newRemoteNode() *RemoteNode {
	role := &serverRemoteNode{server: s}
	role.remote = newRemoteNode(s.LocalNode, role)
	role.remote.mustRegister(net.HelloRequestMessageType, role.handleHelloRequest)
	return role.remote
}

// serverRemoteNode drives the server side of the handshake with a client.
type serverRemoteNode struct {
	server *ServerNode
	remote *RemoteNode

	helloDone bool
	challenge []byte
}

func (sr *serverRemoteNode) opened(ctx context.Context) {}

func (sr *serverRemoteNode) closed(ctx context.Context, err error) {}

func (sr *serverRemoteNode) handleHelloRequest(ctx context.Context, msg net.Message) error {
	m, ok := msg.(*net.HelloRequestMessage)
	if !ok || sr.helloDone {
		return ErrUnexpectedMessage
	}
	sr.helloDone = true

	if m.SupportedProtocolVersion < net.ProtocolVersion {
		sr.reject(ctx, m.ID, common.UnsupportedProtocolVersion)
		return nil
	}

	err := sr.remote.reply(ctx, m.ID, &net.HelloResponseMessage{ChosenProtocolVersion: net.ProtocolVersion}, nil)
	if err != nil {
		return err
	}

	challenge, err := randomBytes(challengeSize)
	if err != nil {
		return err
	}
	sr.challenge = challenge

	req := &net.BeginAuthenticationRequestMessage{
		Challenge: challenge,
		Salt:      sr.server.salt,
	}
	return sr.remote.sendMessage(ctx, req, sr.handleBeginAuthenticationResponse)
}

func (sr *serverRemoteNode) handleBeginAuthenticationResponse(ctx context.Context, msg net.Message) error {
	m, ok := msg.(*net.BeginAuthenticationResponseMessage)
	if !ok {
		return ErrUnexpectedMessage
	}

	if sr.server.auth == nil || !sr.server.auth.verify(sr.challenge, m.Response) {
		sr.remote.logger.WithField("player", m.PlayerName).Warn("Authentication failed")
		sr.reject(ctx, m.ID, common.AuthenticationFailed)
		return nil
	}

	if _, ok := sr.server.remoteNodes[m.PlayerName]; ok || m.PlayerName == "" || m.PlayerName == sr.server.playerName {
		sr.remote.logger.WithField("player", m.PlayerName).Warn("Player name already in use")
		sr.reject(ctx, m.ID, common.DuplicatePlayerName)
		return nil
	}

	end := &net.EndAuthenticationMessage{ServerPlayerName: sr.server.playerName}
	if err := sr.remote.reply(ctx, m.ID, end, nil); err != nil {
		return err
	}

	if err := sr.remote.bind(ctx, m.PlayerName); err != nil {
		sr.remote.logger.WithError(err).Warn("Failed to bind remote node")
		sr.remote.close(ctx, err)
	}

	return nil
}

// reject tells the client why it is not welcome and closes the connection.
func (sr *serverRemoteNode) reject(ctx context.Context, correlationID int, code common.NetworkErrType) {
	sr.remote.sendError(ctx, correlationID, code)
	sr.remote.close(ctx, common.NewNetworkErr(code, "client rejected", nil))
}
