package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"

	"github.com/motoman-devrel/simplemsg/wire"
)

// readBufferSize is generous headroom over the largest defined message
// (a four-group JointTrajPtFullEx, 536 bytes of body, plus framing).
const readBufferSize = 4096

// TCPConn wraps a net.Conn with whole-message framing: Send encodes and
// writes a message in one call, Recv coalesces partial reads until a full
// frame is available and decodes it.
type TCPConn struct {
	conn net.Conn
	id   xid.ID

	// buf accumulates bytes read from the socket that have not yet formed
	// a complete frame.
	buf []byte
}

// DialTCP opens an outbound TCP connection to addr with TCP_NODELAY set, as
// the motion/state/real-time-control channels all require for low-latency
// request/reply traffic.
func DialTCP(ctx context.Context, addr string) (*TCPConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, wrapDialError(addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return &TCPConn{conn: conn, id: xid.New()}, nil
}

// NewTCPConn wraps an already-established connection (used by the
// simulator, which accepts rather than dials).
func NewTCPConn(conn net.Conn) *TCPConn {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return &TCPConn{conn: conn, id: xid.New()}
}

// ID is a short correlation identifier for log lines, stable for the
// lifetime of the connection.
func (c *TCPConn) ID() string { return c.id.String() }

// Send encodes and writes msg in one call.
func (c *TCPConn) Send(header wire.Header, body wire.Body) error {
	encoded := wire.Encode(header, body)
	_, err := c.conn.Write(encoded)
	if err != nil {
		return errors.Wrapf(err, "conn %s: write", c.id)
	}
	return nil
}

// Recv reads the 4-byte length prefix, then exactly that many more bytes,
// coalescing partial reads, and decodes the resulting frame.
func (c *TCPConn) Recv() (wire.Message, error) {
	for {
		if msg, n, err := tryDecode(c.buf); err == nil {
			c.buf = c.buf[n:]
			return msg, nil
		} else if !errors.Is(err, wire.ErrShortFrame) {
			return wire.Message{}, errors.Wrapf(err, "conn %s: decode", c.id)
		}

		chunk := make([]byte, readBufferSize)
		n, err := c.conn.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
		}
		if err != nil {
			if msg, consumed, decErr := tryDecode(c.buf); decErr == nil {
				c.buf = c.buf[consumed:]
				return msg, nil
			}
			if err == io.EOF {
				return wire.Message{}, errors.Wrapf(io.EOF, "conn %s: closed", c.id)
			}
			return wire.Message{}, errors.Wrapf(err, "conn %s: read", c.id)
		}
	}
}

// tryDecode attempts to decode one frame from buf without requiring more
// bytes than are already present, distinguishing "need more data"
// (ErrShortFrame) from a genuine framing error.
func tryDecode(buf []byte) (wire.Message, int, error) {
	return wire.Decode(buf)
}

// Close closes the underlying socket.
func (c *TCPConn) Close() error { return c.conn.Close() }

// RemoteAddr returns the peer address, used for diagnostics.
func (c *TCPConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SetDeadline threads a caller's context deadline through to the socket so
// a cancelled or timed-out context aborts an in-flight Send/Recv.
func (c *TCPConn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

// Underlying exposes the wrapped net.Conn, used by callers that want raw
// socket diagnostics (see ReadDiagnostics).
func (c *TCPConn) Underlying() net.Conn { return c.conn }
