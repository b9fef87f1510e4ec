package net

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultWebSocketPath is the HTTP path on which the server accepts
	// WebSocket connections.
	DefaultWebSocketPath = "/tablenet"

	wsCloseTimeout = time.Second
)

// WebSocketStreamLayer implements the StreamLayer interface over WebSockets.
// Each envelope is carried by one binary frame.
type WebSocketStreamLayer struct {
	path     string
	timeout  time.Duration
	upgrader websocket.Upgrader
	logger   *logrus.Entry
}

// NewWebSocketStreamLayer returns a WebSocket stream layer serving and
// dialing the given HTTP path.
func NewWebSocketStreamLayer(path string, timeout time.Duration, logger *logrus.Entry) *WebSocketStreamLayer {
	if path == "" {
		path = DefaultWebSocketPath
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &WebSocketStreamLayer{
		path:    path,
		timeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufSize,
			WriteBufferSize: bufSize,
			// Table networks are not browser facing; any origin is accepted.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Listen implements the StreamLayer interface.
func (w *WebSocketStreamLayer) Listen(addr string) (Listener, error) {
	list, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	l := &wsListener{
		listener: list,
		acceptCh: make(chan *websocket.Conn),
		closeCh:  make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(w.path, func(rw http.ResponseWriter, r *http.Request) {
		conn, err := w.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			w.logger.WithError(err).Debug("WebSocket upgrade failed")
			return
		}

		select {
		case l.acceptCh <- conn:
		case <-l.closeCh:
			conn.Close()
		}
	})

	l.server = &http.Server{Handler: mux}

	go func() {
		if err := l.server.Serve(list); err != nil && err != http.ErrServerClosed {
			w.logger.WithError(err).Error("WebSocket server stopped")
		}
	}()

	return l, nil
}

// Dial implements the StreamLayer interface.
func (w *WebSocketStreamLayer) Dial(ctx context.Context, addr string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: w.timeout,
		ReadBufferSize:   bufSize,
		WriteBufferSize:  bufSize,
	}

	url := fmt.Sprintf("ws://%s%s", addr, w.path)

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return newWSConn(conn), nil
}

type wsListener struct {
	listener  net.Listener
	server    *http.Server
	acceptCh  chan *websocket.Conn
	closeCh   chan struct{}
	closeOnce sync.Once
}

// Accept implements the Listener interface.
func (l *wsListener) Accept() (Conn, error) {
	select {
	case conn := <-l.acceptCh:
		return newWSConn(conn), nil
	case <-l.closeCh:
		return nil, ErrListenerClosed
	}
}

// Addr implements the Listener interface.
func (l *wsListener) Addr() string {
	return l.listener.Addr().String()
}

// Close implements the Listener interface. Connections already accepted are
// not affected.
func (l *wsListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closeCh)
		err = l.server.Close()
	})
	return err
}

type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// ReadEnvelope implements the Conn interface.
func (c *wsConn) ReadEnvelope() (*MessageEnvelope, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				isEOF(err) {
				return nil, io.EOF
			}
			return nil, err
		}

		if mt != websocket.BinaryMessage {
			continue
		}

		env := &MessageEnvelope{}
		if err := env.Unmarshal(data); err != nil {
			return nil, err
		}
		return env, nil
	}
}

// WriteEnvelope implements the Conn interface.
func (c *wsConn) WriteEnvelope(env *MessageEnvelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// RemoteAddr implements the Conn interface.
func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close implements the Conn interface. It sends a close frame before closing
// the underlying connection so that the peer reads io.EOF.
func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsCloseTimeout))
	return c.conn.Close()
}
