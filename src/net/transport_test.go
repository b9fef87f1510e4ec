package net

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/table"
)

const (
	INMEM = iota
	TCP
	WEBSOCKET
	numTestTransports // NOTE: must be last
)

const testTimeout = 2 * time.Second

func newTestStreamLayer(ttype int, inmem *InmemStreamLayer, t *testing.T) (StreamLayer, string) {
	switch ttype {
	case INMEM:
		return inmem, ""
	case TCP:
		return NewTCPStreamLayer(time.Second), "127.0.0.1:0"
	case WEBSOCKET:
		return NewWebSocketStreamLayer("", time.Second, common.NewTestEntry(t, common.TestLogLevel)), "127.0.0.1:0"
	default:
		panic("Unknown transport type")
	}
}

type testService struct {
	started     chan ServiceContext
	received    chan *MessageEnvelope
	peerStopped chan struct{}
	stopped     chan error
}

func newTestService() *testService {
	return &testService{
		started:     make(chan ServiceContext, 1),
		received:    make(chan *MessageEnvelope, 16),
		peerStopped: make(chan struct{}, 1),
		stopped:     make(chan error, 1),
	}
}

func (s *testService) Started(ctx ServiceContext)           { s.started <- ctx }
func (s *testService) MessageReceived(env *MessageEnvelope) { s.received <- env }
func (s *testService) PeerStopped()                         { s.peerStopped <- struct{}{} }
func (s *testService) Stopped(err error)                    { s.stopped <- err }

// testFactory hands out the services it creates on services.
func testFactory(services chan *testService) ServiceFactory {
	return func() Service {
		s := newTestService()
		services <- s
		return s
	}
}

func nextService(t *testing.T, services chan *testService) *testService {
	select {
	case s := <-services:
		return s
	case <-time.After(testTimeout):
		t.Fatalf("timeout waiting for service")
	}
	return nil
}

func startedContext(t *testing.T, s *testService) ServiceContext {
	select {
	case ctx := <-s.started:
		return ctx
	case <-time.After(testTimeout):
		t.Fatalf("timeout waiting for Started")
	}
	return nil
}

func receivedMessage(t *testing.T, s *testService) Message {
	select {
	case env := <-s.received:
		msg, err := env.Message()
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		return msg
	case <-time.After(testTimeout):
		t.Fatalf("timeout waiting for message")
	}
	return nil
}

func openPair(ttype int, inmem *InmemStreamLayer, t *testing.T) (*Transport, *Transport, chan *testService, chan *testService) {
	stream, addr := newTestStreamLayer(ttype, inmem, t)

	serverServices := make(chan *testService, 4)
	server := NewServerTransport(stream, testFactory(serverServices), common.NewTestEntry(t, common.TestLogLevel))
	if err := server.Open(context.Background(), addr); err != nil {
		t.Fatalf("err: %v", err)
	}

	clientServices := make(chan *testService, 1)
	client := NewClientTransport(stream, testFactory(clientServices), common.NewTestEntry(t, common.TestLogLevel))
	if err := client.Open(context.Background(), server.LocalAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}

	return server, client, serverServices, clientServices
}

func TestTransport_StartStop(t *testing.T) {
	inmem := NewInmemStreamLayer()
	for ttype := 0; ttype < numTestTransports; ttype++ {
		stream, addr := newTestStreamLayer(ttype, inmem, t)
		trans := NewServerTransport(stream, testFactory(make(chan *testService, 1)), common.NewTestEntry(t, common.TestLogLevel))
		if err := trans.Open(context.Background(), addr); err != nil {
			t.Fatalf("err: %v", err)
		}
		if trans.LocalAddr() == "" {
			t.Fatalf("transport %d has no local address", ttype)
		}
		if err := trans.Open(context.Background(), addr); err != ErrTransportOpen {
			t.Fatalf("second Open should fail with ErrTransportOpen, got %v", err)
		}
		if err := trans.Close(); err != nil {
			t.Fatalf("err: %v", err)
		}
		if err := trans.Open(context.Background(), addr); err != ErrTransportShutdown {
			t.Fatalf("Open after Close should fail with ErrTransportShutdown, got %v", err)
		}
	}
}

func TestTransport_DialRefused(t *testing.T) {
	client := NewClientTransport(NewInmemStreamLayer(), testFactory(make(chan *testService, 1)), common.NewTestEntry(t, common.TestLogLevel))
	if err := client.Open(context.Background(), "nowhere"); err == nil {
		t.Fatalf("dialing an unknown address should fail")
	}
}

func TestTransport_Exchange(t *testing.T) {
	inmem := NewInmemStreamLayer()
	for ttype := 0; ttype < numTestTransports; ttype++ {
		server, client, serverServices, clientServices := openPair(ttype, inmem, t)

		clientService := nextService(t, clientServices)
		clientCtx := startedContext(t, clientService)

		serverService := nextService(t, serverServices)
		serverCtx := startedContext(t, serverService)

		location := table.Point{X: 10, Y: 20}
		inc := &table.ComponentIncrement{}
		inc.SetLocation(location)

		req := &ComponentIncrementMessage{
			MessageHeader: MessageHeader{ID: 7},
			Path:          table.ComponentPath{0, 2},
			Increment:     inc,
		}
		env, err := NewMessageEnvelope(req)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if err := clientCtx.SendMessage(env); err != nil {
			t.Fatalf("err: %v", err)
		}

		msg := receivedMessage(t, serverService)
		got, ok := msg.(*ComponentIncrementMessage)
		if !ok {
			t.Fatalf("expected ComponentIncrementMessage, got %T", msg)
		}
		if got.ID != 7 || got.IsCorrelated() {
			t.Fatalf("bad header: %#v", got.MessageHeader)
		}
		if !got.Path.Equal(req.Path) {
			t.Fatalf("path should be %v, not %v", req.Path, got.Path)
		}
		if got.Increment.Location == nil || *got.Increment.Location != location {
			t.Fatalf("location should be %v, not %v", location, got.Increment.Location)
		}

		reply, _ := NewMessageEnvelope(&ErrorMessage{
			MessageHeader: MessageHeader{ID: 1, CorrelationID: 7},
			ErrorCode:     common.UnhandledMessage,
		})
		if err := serverCtx.SendMessage(reply); err != nil {
			t.Fatalf("err: %v", err)
		}

		msg = receivedMessage(t, clientService)
		errMsg, ok := msg.(*ErrorMessage)
		if !ok {
			t.Fatalf("expected ErrorMessage, got %T", msg)
		}
		if errMsg.CorrelationID != 7 || errMsg.ErrorCode != common.UnhandledMessage {
			t.Fatalf("bad error message: %#v", errMsg)
		}

		client.Close()
		server.Close()
	}
}

func TestTransport_PeerStopped(t *testing.T) {
	inmem := NewInmemStreamLayer()
	for ttype := 0; ttype < numTestTransports; ttype++ {
		server, client, serverServices, clientServices := openPair(ttype, inmem, t)

		clientService := nextService(t, clientServices)
		clientCtx := startedContext(t, clientService)
		serverService := nextService(t, serverServices)
		startedContext(t, serverService)

		// Goodbye is written before the connection is closed.
		env, _ := NewMessageEnvelope(&GoodbyeMessage{MessageHeader: MessageHeader{ID: 1}})
		clientCtx.SendMessage(env)
		clientCtx.StopService()
		clientCtx.StopService()

		if _, ok := receivedMessage(t, serverService).(*GoodbyeMessage); !ok {
			t.Fatalf("expected GoodbyeMessage")
		}

		select {
		case <-serverService.peerStopped:
		case <-time.After(testTimeout):
			t.Fatalf("server service should see the peer stop (transport %d)", ttype)
		}

		for _, s := range []*testService{serverService, clientService} {
			select {
			case err := <-s.stopped:
				if err != nil {
					t.Fatalf("Stopped should report no error, got %v", err)
				}
			case <-time.After(testTimeout):
				t.Fatalf("timeout waiting for Stopped")
			}
		}

		select {
		case <-clientService.peerStopped:
			t.Fatalf("a locally stopped service should not see its peer stop")
		default:
		}

		if err := clientCtx.SendMessage(env); err != ErrServiceStopped {
			t.Fatalf("SendMessage after stop should fail with ErrServiceStopped, got %v", err)
		}

		client.Close()
		server.Close()
	}
}

func TestTransport_CloseStopsServices(t *testing.T) {
	server, client, serverServices, clientServices := openPair(INMEM, NewInmemStreamLayer(), t)

	serverService := nextService(t, serverServices)
	startedContext(t, serverService)
	clientService := nextService(t, clientServices)
	startedContext(t, clientService)

	if err := server.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Close returns once every service is stopped.
	select {
	case err := <-serverService.stopped:
		if err != nil {
			t.Fatalf("err: %v", err)
		}
	default:
		t.Fatalf("server service should be stopped when Close returns")
	}

	select {
	case <-clientService.peerStopped:
	case <-time.After(testTimeout):
		t.Fatalf("client service should see the server stop")
	}

	client.Close()
}

func TestMessageEnvelope_Invalid(t *testing.T) {
	env, err := NewMessageEnvelope(&ComponentIncrementMessage{
		MessageHeader: MessageHeader{ID: 3},
		Path:          table.ComponentPath{},
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	var decoded MessageEnvelope
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatalf("err: %v", err)
	}
	if decoded.Header.ID != 3 || decoded.Header.Type != ComponentIncrementMessageType {
		t.Fatalf("bad header: %#v", decoded.Header)
	}
	if _, err := decoded.Message(); err == nil {
		t.Fatalf("an increment message without an increment should not decode")
	}

	unknown := &MessageEnvelope{Header: Header{ID: 4, Type: MessageType(200)}}
	if _, err := unknown.Message(); err == nil {
		t.Fatalf("unknown message types should not decode")
	}
}

func TestMessageEnvelope_TableRoundTrip(t *testing.T) {
	card := &table.Memento{
		Strategy:    table.CardStrategyID,
		Location:    table.Point{X: 3, Y: 4},
		Orientation: table.FaceDown,
		SurfaceDesigns: map[table.Orientation]table.SurfaceDesignID{
			table.FaceUp:   "ace_of_spades",
			table.FaceDown: "blue_back",
		},
	}
	tabletop := &table.Memento{
		Strategy:    table.TabletopStrategyID,
		Orientation: table.DefaultOrientation,
		SurfaceDesigns: map[table.Orientation]table.SurfaceDesignID{
			table.DefaultOrientation: "felt",
		},
		Layout:     table.AbsoluteLayoutID,
		Components: []*table.Memento{card},
	}

	env, err := NewMessageEnvelope(&TableMessage{
		MessageHeader: MessageHeader{ID: 7},
		Memento:       tabletop,
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	var decoded MessageEnvelope
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatalf("err: %v", err)
	}

	msg, err := decoded.Message()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	tm, ok := msg.(*TableMessage)
	if !ok {
		t.Fatalf("expected a table message, got %T", msg)
	}
	if tm.ID != 7 {
		t.Fatalf("bad id: %d", tm.ID)
	}
	if !reflect.DeepEqual(tabletop, tm.Memento) {
		t.Fatalf("memento should survive the wire: expected %#v, got %#v", tabletop, tm.Memento)
	}
}
