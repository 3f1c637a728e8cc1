// Package motion is the Simple Message motion service client: a serialised
// request/reply session on TCP port 50240 that issues control commands and
// streams trajectory points.
package motion

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/internal/metrics"
	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// DefaultPort is the motion service's well-known TCP port.
const DefaultPort = 50240

// Client is a synchronous, serialised request/reply session: at most one
// request is outstanding on the socket at a time. The advisory caller-side
// state machine is: disconnected -> connected -> servos on -> traj mode on
// -> feeding trajectory -> traj mode off -> servos off -> disconnected. It
// is not enforced here; the controller's own reply enforces it.
type Client struct {
	mu     sync.Mutex
	conn   *transport.TCPConn
	logger logging.Logger
}

// Dial connects to the motion service at addr (host:port), retrying a
// refused connection with bounded exponential backoff — refusals this early
// are almost always a controller whose alarms haven't been reset yet, which
// clears itself within a few seconds.
func Dial(ctx context.Context, addr string, logger logging.Logger) (*Client, error) {
	var conn *transport.TCPConn
	op := func() error {
		c, err := transport.DialTCP(ctx, addr)
		if err != nil {
			if errors.Is(err, transport.ErrConnectionRefused) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		conn = c
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, errors.Wrapf(err, "motion: dial %s", addr)
	}
	logger.Infof("motion: connected to %s (conn %s)", addr, conn.ID())
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

	start := time.Now()
	if err := c.conn.Send(header, body); err != nil {
		return wire.Message{}, errors.Wrap(err, "motion: send")
	}
	reply, err := c.conn.Recv()
	metrics.ObserveMotionLatency(time.Since(start))
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "motion: recv")
	}
	return reply, nil
}

func ctrlHeader() wire.Header {
	return wire.Header{MsgType: wire.MsgMotoMotionCtrl, CommType: wire.CommServiceRequest}
}

// motionCall sends a MotoMotionCtrl and returns its MotoMotionReply. An
// Invalid reply body (unrecognised tag) is treated as RemoteFailure, per
// spec.md §7.
func (c *Client) motionCall(ctx context.Context, body wire.MotoMotionCtrl) (wire.MotoMotionReply, error) {
	msg, err := c.exchange(ctx, ctrlHeader(), body)
	if err != nil {
		return wire.MotoMotionReply{}, err
	}
	switch b := msg.Body.(type) {
	case wire.MotoMotionReply:
		return b, nil
	default:
		return wire.MotoMotionReply{}, &RemoteFailure{Result: wire.ResultFailure, Subcode: 0}
	}
}

// command issues a bodyless-data control command and turns a non-SUCCESS
// result into a RemoteFailure for the caller.
func (c *Client) command(ctx context.Context, groupno, command int32) error {
	reply, err := c.motionCall(ctx, wire.MotoMotionCtrl{
		GroupNo:  groupno,
		Sequence: wire.UnspecifiedSequence,
		Command:  command,
	})
	if err != nil {
		return err
	}
	if reply.Result != wire.ResultSuccess {
		return &RemoteFailure{Result: reply.Result, Subcode: reply.Subcode}
	}
	return nil
}

// CheckMotionReady reports whether the controller is ready to accept
// motion commands. Unlike command(), a non-SUCCESS result is the answer
// ("not ready"), not a RemoteFailure.
func (c *Client) CheckMotionReady(ctx context.Context) (bool, error) {
	reply, err := c.motionCall(ctx, wire.MotoMotionCtrl{
		GroupNo:  -1,
		Sequence: wire.UnspecifiedSequence,
		Command:  wire.CommandCheckMotionReady,
	})
	if err != nil {
		return false, err
	}
	return reply.Result == wire.ResultSuccess, nil
}

// CheckQueueCount returns the controller's trajectory queue depth for
// groupno.
func (c *Client) CheckQueueCount(ctx context.Context, groupno int32) (int, error) {
	reply, err := c.motionCall(ctx, wire.MotoMotionCtrl{
		GroupNo:  groupno,
		Sequence: wire.UnspecifiedSequence,
		Command:  wire.CommandCheckQueueCnt,
	})
	if err != nil {
		return 0, err
	}
	if reply.Result != wire.ResultSuccess {
		return 0, &RemoteFailure{Result: reply.Result, Subcode: reply.Subcode}
	}
	return int(reply.Data[0]), nil
}

func (c *Client) StopMotion(ctx context.Context) error {
	return c.command(ctx, -1, wire.CommandStopMotion)
}

func (c *Client) StartServos(ctx context.Context) error {
	return c.command(ctx, -1, wire.CommandStartServos)
}

func (c *Client) StopServos(ctx context.Context) error {
	return c.command(ctx, -1, wire.CommandStopServos)
}

func (c *Client) ResetAlarm(ctx context.Context) error {
	return c.command(ctx, -1, wire.CommandResetAlarm)
}

func (c *Client) StartTrajMode(ctx context.Context) error {
	return c.command(ctx, -1, wire.CommandStartTrajMode)
}

func (c *Client) StopTrajMode(ctx context.Context) error {
	return c.command(ctx, -1, wire.CommandStopTrajMode)
}

// Disconnect is a cooperative shutdown: send the disconnect command, then
// close the socket regardless of whether the controller replied.
func (c *Client) Disconnect(ctx context.Context) error {
	cmdErr := c.command(ctx, -1, wire.CommandDisconnect)
	closeErr := c.conn.Close()
	if cmdErr != nil {
		return cmdErr
	}
	return closeErr
}

// SelectTool is tag 2018.
func (c *Client) SelectTool(ctx context.Context, groupno, tool, sequence int32) (wire.MotoMotionReply, error) {
	header := wire.Header{MsgType: wire.MsgSelectTool, CommType: wire.CommServiceRequest}
	msg, err := c.exchange(ctx, header, wire.SelectTool{GroupNo: groupno, Tool: tool, Sequence: sequence})
	if err != nil {
		return wire.MotoMotionReply{}, err
	}
	switch b := msg.Body.(type) {
	case wire.MotoMotionReply:
		return b, nil
	default:
		return wire.MotoMotionReply{}, &RemoteFailure{Result: wire.ResultFailure}
	}
}

// GetDhParameters is tag 2020: a bodyless request whose reply carries the
// robot's kinematic parameters.
func (c *Client) GetDhParameters(ctx context.Context) (wire.MotoGetDhParameters, error) {
	header := wire.Header{MsgType: wire.MsgMotoGetDhParameters, CommType: wire.CommServiceRequest}
	msg, err := c.exchange(ctx, header, nil)
	if err != nil {
		return wire.MotoGetDhParameters{}, err
	}
	dh, ok := msg.Body.(wire.MotoGetDhParameters)
	if !ok {
		return wire.MotoGetDhParameters{}, &RemoteFailure{Result: wire.ResultFailure}
	}
	return dh, nil
}

// SendJointTrajectoryPoint sends either a JointTrajPtFull or a
// JointTrajPtFullEx point. Readiness is checked before the variant is even
// discriminated: spec.md §9 flags the opposite ordering (type-check before
// readiness check) as dead code in the original implementation.
func (c *Client) SendJointTrajectoryPoint(ctx context.Context, pt wire.Body) (wire.MotoMotionReply, error) {
	ready, err := c.CheckMotionReady(ctx)
	if err != nil {
		return wire.MotoMotionReply{}, err
	}
	if !ready {
		return wire.MotoMotionReply{}, ErrNotReady
	}

	var header wire.Header
	switch pt.(type) {
	case wire.JointTrajPtFull:
		header = wire.Header{MsgType: wire.MsgJointTrajPtFull, CommType: wire.CommServiceRequest}
	case wire.JointTrajPtFullEx:
		header = wire.Header{MsgType: wire.MsgJointTrajPtFullEx, CommType: wire.CommServiceRequest}
	default:
		return wire.MotoMotionReply{}, errors.Errorf("motion: unsupported trajectory point type %T", pt)
	}

	msg, err := c.exchange(ctx, header, pt)
	if err != nil {
		return wire.MotoMotionReply{}, err
	}
	reply, ok := msg.Body.(wire.MotoMotionReply)
	if !ok {
		return wire.MotoMotionReply{}, &RemoteFailure{Result: wire.ResultFailure}
	}
	if reply.Result != wire.ResultSuccess {
		return reply, &RemoteFailure{Result: reply.Result, Subcode: reply.Subcode}
	}
	return reply, nil
}

// Close closes the underlying connection without sending Disconnect. Use
// Disconnect for a cooperative shutdown.
func (c *Client) Close() error { return c.conn.Close() }
