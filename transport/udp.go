package transport

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/motoman-devrel/simplemsg/wire"
)

// udpBufferSize comfortably covers every defined message, per spec.md §4.2.
const udpBufferSize = 1024

// UDPEndpoint sends and receives one whole wire.Message per datagram, used
// by the real-time motion data channel.
type UDPEndpoint struct {
	conn *net.UDPConn
}

// DialUDP opens a UDP "connection" (in the net package sense: a socket with
// a fixed peer) to addr.
func DialUDP(addr string) (*UDPEndpoint, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, wrapDialError(addr, err)
	}
	return &UDPEndpoint{conn: conn}, nil
}

// NewUDPEndpoint wraps an already-bound socket (the simulator's side, which
// listens rather than dials).
func NewUDPEndpoint(conn *net.UDPConn) *UDPEndpoint {
	return &UDPEndpoint{conn: conn}
}

// ListenUDP binds a UDP socket on addr for the simulator's side of the
// real-time data channel.
func ListenUDP(addr string) (*UDPEndpoint, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	return &UDPEndpoint{conn: conn}, nil
}

// Send encodes and writes one datagram.
func (u *UDPEndpoint) Send(header wire.Header, body wire.Body) error {
	encoded := wire.Encode(header, body)
	_, err := u.conn.Write(encoded)
	if err != nil {
		return errors.Wrap(err, "udp write")
	}
	return nil
}

// SendTo encodes and writes one datagram to a specific peer address, used
// by the simulator which serves many UDP peers on one socket.
func (u *UDPEndpoint) SendTo(addr *net.UDPAddr, header wire.Header, body wire.Body) error {
	encoded := wire.Encode(header, body)
	_, err := u.conn.WriteToUDP(encoded, addr)
	if err != nil {
		return errors.Wrap(err, "udp write to")
	}
	return nil
}

// Recv reads one datagram and decodes it as a whole message.
func (u *UDPEndpoint) Recv() (wire.Message, error) {
	buf := make([]byte, udpBufferSize)
	n, err := u.conn.Read(buf)
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "udp read")
	}
	msg, _, err := wire.Decode(buf[:n])
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "udp decode")
	}
	return msg, nil
}

// RecvFrom reads one datagram and reports the sender, used by the
// simulator's UDP loop which must reply to whichever peer sent it.
func (u *UDPEndpoint) RecvFrom() (wire.Message, *net.UDPAddr, error) {
	buf := make([]byte, udpBufferSize)
	n, peer, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		return wire.Message{}, nil, errors.Wrap(err, "udp read")
	}
	msg, _, err := wire.Decode(buf[:n])
	if err != nil {
		return wire.Message{}, peer, errors.Wrap(err, "udp decode")
	}
	return msg, peer, nil
}

// SetReadDeadline arranges for the next Recv/RecvFrom to fail with a
// timeout error if no datagram arrives by t, used by the real-time loop's
// per-cycle receive timeout.
func (u *UDPEndpoint) SetReadDeadline(t time.Time) error {
	return u.conn.SetReadDeadline(t)
}

// Close closes the underlying socket.
func (u *UDPEndpoint) Close() error { return u.conn.Close() }

// LocalAddr reports the socket's local address, used by tests and
// diagnostics that need to identify a dialed endpoint to its peer.
func (u *UDPEndpoint) LocalAddr() net.Addr { return u.conn.LocalAddr() }

// IsTimeout reports whether err is a read/write deadline expiry, which
// spec.md §7 says must propagate as-is rather than being wrapped away.
func IsTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
