// Package ioctrl is the IO read/write client on TCP port 50242. spec.md §1
// calls these "trivial request/reply pairs that reuse the motion client's
// plumbing"; this package is that plumbing, generalized from motion.Client's
// single-request-in-flight discipline rather than duplicated wholesale.
package ioctrl

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// DefaultPort is the IO service's well-known TCP port.
const DefaultPort = 50242

// Client is a serialised request/reply session for IO bit and group
// read/write operations.
type Client struct {
	mu     sync.Mutex
	conn   *transport.TCPConn
	logger logging.Logger
}

// Dial connects to the IO service at addr.
func Dial(ctx context.Context, addr string, logger logging.Logger) (*Client, error) {
	conn, err := transport.DialTCP(ctx, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "ioctrl: dial %s", addr)
	}
	return &Client{conn: conn, logger: logger}, nil
}

func (c *Client) exchange(ctx context.Context, header wire.Header, body wire.Body) (wire.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	if err := c.conn.Send(header, body); err != nil {
		return wire.Message{}, errors.Wrap(err, "ioctrl: send")
	}
	reply, err := c.conn.Recv()
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "ioctrl: recv")
	}
	return reply, nil
}

// ReadIOBit reads a single IO bit at address.
func (c *Client) ReadIOBit(ctx context.Context, address uint32) (bool, error) {
	header := wire.Header{MsgType: wire.MsgMotoReadIOBitRequest, CommType: wire.CommServiceRequest}
	msg, err := c.exchange(ctx, header, wire.MotoReadIOBitRequest{Address: address})
	if err != nil {
		return false, err
	}
	reply, ok := msg.Body.(wire.MotoReadIOBitReply)
	if !ok {
		return false, errors.Errorf("ioctrl: unexpected reply type %T", msg.Body)
	}
	if reply.ResultCode != 0 {
		return false, errors.Errorf("ioctrl: read bit %d failed, result_code=%d", address, reply.ResultCode)
	}
	return reply.Value != 0, nil
}

// WriteIOBit writes a single IO bit at address.
func (c *Client) WriteIOBit(ctx context.Context, address uint32, value bool) error {
	header := wire.Header{MsgType: wire.MsgMotoWriteIOBitRequest, CommType: wire.CommServiceRequest}
	v := uint32(0)
	if value {
		v = 1
	}
	msg, err := c.exchange(ctx, header, wire.MotoWriteIOBitRequest{Address: address, Value: v})
	if err != nil {
		return err
	}
	reply, ok := msg.Body.(wire.MotoWriteIOBitReply)
	if !ok {
		return errors.Errorf("ioctrl: unexpected reply type %T", msg.Body)
	}
	if reply.ResultCode != 0 {
		return errors.Errorf("ioctrl: write bit %d failed, result_code=%d", address, reply.ResultCode)
	}
	return nil
}

// ReadIOGroup reads a group (word) IO register at address.
func (c *Client) ReadIOGroup(ctx context.Context, address uint32) (uint32, error) {
	header := wire.Header{MsgType: wire.MsgMotoReadIOGroupRequest, CommType: wire.CommServiceRequest}
	msg, err := c.exchange(ctx, header, wire.MotoReadIOGroupRequest{Address: address})
	if err != nil {
		return 0, err
	}
	reply, ok := msg.Body.(wire.MotoReadIOGroupReply)
	if !ok {
		return 0, errors.Errorf("ioctrl: unexpected reply type %T", msg.Body)
	}
	if reply.ResultCode != 0 {
		return 0, errors.Errorf("ioctrl: read group %d failed, result_code=%d", address, reply.ResultCode)
	}
	return reply.Value, nil
}

// WriteIOGroup writes a group (word) IO register at address.
func (c *Client) WriteIOGroup(ctx context.Context, address, value uint32) error {
	header := wire.Header{MsgType: wire.MsgMotoWriteIOGroupRequest, CommType: wire.CommServiceRequest}
	msg, err := c.exchange(ctx, header, wire.MotoWriteIOGroupRequest{Address: address, Value: value})
	if err != nil {
		return err
	}
	reply, ok := msg.Body.(wire.MotoWriteIOGroupReply)
	if !ok {
		return errors.Errorf("ioctrl: unexpected reply type %T", msg.Body)
	}
	if reply.ResultCode != 0 {
		return errors.Errorf("ioctrl: write group %d failed, result_code=%d", address, reply.ResultCode)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
