package node

import (
	"context"
	"testing"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServiceContext records what a remote node sends. It is only touched
// on the node layer.
type fakeServiceContext struct {
	sent    []*net.MessageEnvelope
	stops   int
	sendErr error
}

func (f *fakeServiceContext) SendMessage(env *net.MessageEnvelope) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeServiceContext) StopService() {
	f.stops++
}

func (f *fakeServiceContext) last(t *testing.T) net.Message {
	require.NotEmpty(t, f.sent)
	msg, err := f.sent[len(f.sent)-1].Message()
	require.NoError(t, err)
	return msg
}

type recordingRemoteRole struct {
	openedCount int
	closedCount int
	closedErr   error
}

func (r *recordingRemoteRole) opened(ctx context.Context) {
	r.openedCount++
}

func (r *recordingRemoteRole) closed(ctx context.Context, err error) {
	r.closedCount++
	r.closedErr = err
}

func newTestEnvironment(t *testing.T) *table.Environment {
	env, err := table.NewEnvironment(table.NewDefaultRegistry())
	require.NoError(t, err)
	return env
}

// newDetachedServer returns a server node whose state is driven by the test
// rather than by a transport.
func newDetachedServer(t *testing.T) *ServerNode {
	s := NewServerNode(newTestEnvironment(t), net.NewInmemStreamLayer(), nil, TestConfig(t))
	t.Cleanup(func() { s.Disconnect(nil) })
	return s
}

func onLayer(t *testing.T, n *LocalNode, f func(ctx context.Context)) {
	err := n.layer.SyncExec(context.Background(), func(ctx context.Context) error {
		f(ctx)
		return nil
	})
	require.NoError(t, err)
}

func newStartedRemote(t *testing.T, n *LocalNode) (*RemoteNode, *fakeServiceContext, *recordingRemoteRole) {
	role := &recordingRemoteRole{}
	r := newRemoteNode(n, role)
	sc := &fakeServiceContext{}
	onLayer(t, n, func(ctx context.Context) {
		require.NoError(t, r.started(ctx, sc))
	})
	return r, sc, role
}

func envelope(t *testing.T, msg net.Message, id int, correlationID int) *net.MessageEnvelope {
	h := msg.Header()
	h.ID = id
	h.CorrelationID = correlationID
	env, err := net.NewMessageEnvelope(msg)
	require.NoError(t, err)
	return env
}

func TestRemoteNode_Started(t *testing.T) {
	s := newDetachedServer(t)
	r, _, role := newStartedRemote(t, s.LocalNode)

	assert.GreaterOrEqual(t, r.nextID, net.MinID)
	assert.LessOrEqual(t, r.nextID, net.MaxID)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		assert.True(t, r.IsOpen())
		assert.False(t, r.IsBound())
		assert.Contains(t, s.connections, r)

		err := r.started(ctx, &fakeServiceContext{})
		assert.True(t, errors.Cause(err) == ErrArgument)
	})

	assert.Equal(t, 1, role.openedCount)
}

func TestRemoteNode_MessageIDsWrap(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, _ := newStartedRemote(t, s.LocalNode)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		r.nextID = net.MaxID
		require.NoError(t, r.sendMessage(ctx, &net.GoodbyeMessage{}, nil))
		require.NoError(t, r.sendMessage(ctx, &net.GoodbyeMessage{}, nil))
	})

	require.Len(t, sc.sent, 2)
	assert.Equal(t, net.MaxID, sc.sent[0].Header.ID)
	assert.Equal(t, net.MinID, sc.sent[1].Header.ID)
	assert.Equal(t, net.NullCorrelationID, sc.sent[1].Header.CorrelationID)
}

func TestRemoteNode_SendFailure(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, _ := newStartedRemote(t, s.LocalNode)
	sc.sendErr = net.ErrServiceStopped

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		err := r.sendMessage(ctx, &net.GoodbyeMessage{}, func(ctx context.Context, msg net.Message) error {
			return nil
		})
		assert.True(t, common.IsNetwork(err, common.TransportError))
		assert.Empty(t, r.responseHandlers)
	})
}

func TestRemoteNode_CorrelatedHandlerFiresOnce(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, _ := newStartedRemote(t, s.LocalNode)

	calls := 0
	var requestID int
	onLayer(t, s.LocalNode, func(ctx context.Context) {
		err := r.sendMessage(ctx, &net.HelloRequestMessage{SupportedProtocolVersion: 1},
			func(ctx context.Context, msg net.Message) error {
				if _, ok := msg.(*net.HelloResponseMessage); !ok {
					return ErrUnexpectedMessage
				}
				calls++
				return nil
			})
		require.NoError(t, err)
		requestID = sc.sent[0].Header.ID

		resp := &net.HelloResponseMessage{ChosenProtocolVersion: 1}
		r.messageReceived(ctx, envelope(t, resp, 42, requestID))
	})

	assert.Equal(t, 1, calls)
	assert.Len(t, sc.sent, 1)

	// The handler is gone; nothing else handles hello responses.
	onLayer(t, s.LocalNode, func(ctx context.Context) {
		resp := &net.HelloResponseMessage{ChosenProtocolVersion: 1}
		r.messageReceived(ctx, envelope(t, resp, 43, requestID))
	})

	assert.Equal(t, 1, calls)
	require.Len(t, sc.sent, 2)

	reply, ok := sc.last(t).(*net.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, common.UnhandledMessage, reply.ErrorCode)
	assert.Equal(t, 43, reply.CorrelationID)
}

func TestRemoteNode_UnexpectedMessage(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, _ := newStartedRemote(t, s.LocalNode)

	reject := func(ctx context.Context, msg net.Message) error {
		return ErrUnexpectedMessage
	}

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		require.NoError(t, r.registerUncorrelatedHandler(net.PlayersMessageType, reject))
		err := r.registerUncorrelatedHandler(net.PlayersMessageType, reject)
		assert.True(t, errors.Cause(err) == ErrArgument)

		r.messageReceived(ctx, envelope(t, &net.PlayersMessage{Players: []string{"a"}}, 7, 0))
	})

	require.Len(t, sc.sent, 1)
	reply := sc.last(t).(*net.ErrorMessage)
	assert.Equal(t, common.UnexpectedMessage, reply.ErrorCode)
	assert.Equal(t, 7, reply.CorrelationID)

	// Error messages are never answered with another error.
	onLayer(t, s.LocalNode, func(ctx context.Context) {
		require.NoError(t, r.sendMessage(ctx, &net.GoodbyeMessage{}, reject))
		id := sc.sent[1].Header.ID
		r.messageReceived(ctx, envelope(t, &net.ErrorMessage{ErrorCode: common.UnspecifiedError}, 8, id))
	})

	assert.Len(t, sc.sent, 2)
}

func TestRemoteNode_UnknownMessage(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, _ := newStartedRemote(t, s.LocalNode)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		r.messageReceived(ctx, &net.MessageEnvelope{
			Header: net.Header{ID: 9, Type: net.MessageType(200)},
			Body:   []byte{0x80},
		})
	})

	require.Len(t, sc.sent, 1)
	reply := sc.last(t).(*net.ErrorMessage)
	assert.Equal(t, common.UnknownMessage, reply.ErrorCode)
	assert.Equal(t, 9, reply.CorrelationID)
}

func TestRemoteNode_HandlerPanic(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, _ := newStartedRemote(t, s.LocalNode)

	calls := 0
	onLayer(t, s.LocalNode, func(ctx context.Context) {
		require.NoError(t, r.registerUncorrelatedHandler(net.PlayersMessageType,
			func(ctx context.Context, msg net.Message) error {
				calls++
				if calls == 1 {
					panic("handler bug")
				}
				return nil
			}))
		r.messageReceived(ctx, envelope(t, &net.PlayersMessage{}, 1, 0))
	})

	assert.Empty(t, sc.sent)
	assert.Equal(t, Disconnected, s.State())
	assert.Empty(t, s.Players())

	// Dispatch goes on with the next message.
	onLayer(t, s.LocalNode, func(ctx context.Context) {
		r.messageReceived(ctx, envelope(t, &net.PlayersMessage{}, 2, 0))
		assert.True(t, r.IsOpen())
	})

	assert.Equal(t, 2, calls)
	assert.Empty(t, sc.sent)
}

func TestRemoteNode_CorrelatedRepliesOutOfOrder(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, _ := newStartedRemote(t, s.LocalNode)

	var first, second []int
	record := func(ids *[]int) MessageHandler {
		return func(ctx context.Context, msg net.Message) error {
			resp, ok := msg.(*net.HelloResponseMessage)
			if !ok {
				return ErrUnexpectedMessage
			}
			*ids = append(*ids, resp.ChosenProtocolVersion)
			return nil
		}
	}

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		require.NoError(t, r.sendMessage(ctx, &net.HelloRequestMessage{SupportedProtocolVersion: 1}, record(&first)))
		require.NoError(t, r.sendMessage(ctx, &net.HelloRequestMessage{SupportedProtocolVersion: 2}, record(&second)))
		assert.Len(t, r.responseHandlers, 2)

		firstID := sc.sent[0].Header.ID
		secondID := sc.sent[1].Header.ID

		r.messageReceived(ctx, envelope(t, &net.HelloResponseMessage{ChosenProtocolVersion: 2}, 50, secondID))
		r.messageReceived(ctx, envelope(t, &net.HelloResponseMessage{ChosenProtocolVersion: 1}, 51, firstID))

		assert.Empty(t, r.responseHandlers)
	})

	assert.Equal(t, []int{1}, first)
	assert.Equal(t, []int{2}, second)
	assert.Len(t, sc.sent, 2)
}

func TestRemoteNode_CloseCauseIsSticky(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, role := newStartedRemote(t, s.LocalNode)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		require.NoError(t, r.close(ctx, common.NewNetworkErr(common.AuthenticationFailed, "", nil)))
		require.NoError(t, r.close(ctx, common.NewNetworkErr(common.DuplicatePlayerName, "", nil)))
		r.stopped(ctx, errors.New("connection reset"))
	})

	assert.Equal(t, 2, sc.stops)
	assert.True(t, common.IsNetwork(r.CloseErr(), common.AuthenticationFailed), "got %v", r.CloseErr())
	assert.True(t, common.IsNetwork(role.closedErr, common.AuthenticationFailed))
	assert.False(t, r.IsOpen())
}

func TestRemoteNode_BindUnbind(t *testing.T) {
	s := newDetachedServer(t)
	r, _, role := newStartedRemote(t, s.LocalNode)
	other, _, _ := newStartedRemote(t, s.LocalNode)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		err := r.bind(ctx, "bob")
		assert.True(t, common.IsNetwork(err, common.IllegalConnectionState))
		assert.Equal(t, "", r.PlayerName())

		s.playerName = "host"
		s.setState(Connected)

		require.NoError(t, r.bind(ctx, "bob"))
		assert.True(t, r.IsBound())
		assert.Equal(t, "bob", r.PlayerName())
		assert.True(t, s.remoteNodes["bob"] == r)
		assert.True(t, s.tables["bob"] == r.Table())

		err = r.bind(ctx, "carol")
		assert.True(t, errors.Cause(err) == ErrArgument)

		err = other.bind(ctx, "bob")
		assert.True(t, errors.Cause(err) == ErrArgument)
		assert.False(t, other.IsBound())
		assert.Equal(t, "", other.PlayerName())

		err = other.bind(ctx, "host")
		assert.True(t, errors.Cause(err) == ErrArgument)

		assert.Equal(t, []string{"host", "bob"}, s.players)

		r.stopped(ctx, nil)

		assert.False(t, r.IsBound())
		assert.False(t, r.IsOpen())
		assert.NotContains(t, s.remoteNodes, "bob")
		assert.NotContains(t, s.tables, "bob")
		assert.NotContains(t, s.connections, r)
		assert.Equal(t, []string{"host"}, s.players)

		s.setState(Disconnected)
	})

	assert.Equal(t, 1, role.closedCount)
	assert.NoError(t, role.closedErr)
}

func TestRemoteNode_PeerStopped(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, role := newStartedRemote(t, s.LocalNode)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		r.peerStopped(ctx)
		r.stopped(ctx, nil)
	})

	assert.Equal(t, 1, sc.stops)
	assert.True(t, common.IsNetwork(r.CloseErr(), common.UnexpectedPeerTermination))
	assert.True(t, common.IsNetwork(role.closedErr, common.UnexpectedPeerTermination))
}

func TestRemoteNode_Goodbye(t *testing.T) {
	s := newDetachedServer(t)
	r, sc, role := newStartedRemote(t, s.LocalNode)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		r.messageReceived(ctx, envelope(t, &net.GoodbyeMessage{}, 3, 0))
		r.peerStopped(ctx)
		r.stopped(ctx, nil)
	})

	assert.Equal(t, 2, sc.stops)
	assert.Empty(t, sc.sent)
	assert.NoError(t, r.CloseErr())
	assert.NoError(t, role.closedErr)
}

func TestRemoteNode_TransportFailure(t *testing.T) {
	s := newDetachedServer(t)
	r, _, role := newStartedRemote(t, s.LocalNode)

	onLayer(t, s.LocalNode, func(ctx context.Context) {
		r.stopped(ctx, errors.New("connection reset"))

		err := r.sendMessage(ctx, &net.GoodbyeMessage{}, nil)
		assert.True(t, common.IsNetwork(err, common.NetworkDisconnected))
	})

	assert.True(t, common.IsNetwork(role.closedErr, common.TransportError))
}
