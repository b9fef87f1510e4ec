package net

import (
	"bufio"
	"io"
	"net"
	"strings"

	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

const (
	bufSize = 64 * 1024
)

// netConn streams msgpack encoded envelopes over a net.Conn. It backs the
// TCP and Inmem stream layers.
type netConn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	dec  *codec.Decoder
	enc  *codec.Encoder
}

func newNetConn(conn net.Conn) *netConn {
	c := &netConn{
		conn: conn,
		r:    bufio.NewReaderSize(conn, bufSize),
		w:    bufio.NewWriterSize(conn, bufSize),
	}
	c.dec = codec.NewDecoder(c.r, msgpackHandle())
	c.enc = codec.NewEncoder(c.w, msgpackHandle())
	return c
}

// ReadEnvelope implements the Conn interface.
func (c *netConn) ReadEnvelope() (*MessageEnvelope, error) {
	env := &MessageEnvelope{}
	if err := c.dec.Decode(env); err != nil {
		if isEOF(err) {
			return nil, io.EOF
		}
		return nil, err
	}
	return env, nil
}

// WriteEnvelope implements the Conn interface.
func (c *netConn) WriteEnvelope(env *MessageEnvelope) error {
	if err := c.enc.Encode(env); err != nil {
		return err
	}
	return c.w.Flush()
}

// RemoteAddr implements the Conn interface.
func (c *netConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Close implements the Conn interface.
func (c *netConn) Close() error {
	return c.conn.Close()
}

// isEOF reports whether err denotes a stream closed by the peer. The codec
// does not always return io.EOF unwrapped.
func isEOF(err error) bool {
	cause := errors.Cause(err)
	if cause == io.EOF || cause == io.ErrUnexpectedEOF {
		return true
	}
	return strings.HasSuffix(err.Error(), io.EOF.Error())
}
