// Package realtime is the real-time motion endpoint (C5): a TCP control
// channel used to start/stop real-time mode, paired with a UDP data channel
// that exchanges fixed-cadence state/command packets under an echoed
// message-id contract. Computing what to command from a given state (the
// control law itself) is the caller's concern — motion planning and control
// are explicit non-goals here; this package only enforces the wire-level
// cadence and echo discipline.
package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/internal/metrics"
	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// DefaultControlPort is the TCP port used to start/stop real-time mode.
const DefaultControlPort = 50243

// DefaultDataPort is the UDP port used for the state/command exchange.
const DefaultDataPort = 50244

// DefaultPeriod is the nominal cycle period at 250 Hz.
const DefaultPeriod = 4 * time.Millisecond

// maxConsecutiveTimeouts bounds how many missed receive deadlines in a row
// are tolerated before the loop gives up, per spec.md §7 ("terminates ...
// on repeated receive timeouts").
const maxConsecutiveTimeouts = 10

// ErrEchoMismatch is returned (and, on the simulator side, enforced) when a
// command's message_id does not match the state packet it answers.
var ErrEchoMismatch = errors.New("realtime: command message_id does not match state message_id")

// ErrTooManyTimeouts is returned when the data channel misses its receive
// deadline too many cycles in a row.
var ErrTooManyTimeouts = errors.New("realtime: too many consecutive receive timeouts")

// CommandFunc computes the per-group command data to send in reply to a
// state packet. The echo field (MessageID) is filled in by the endpoint,
// not by the CommandFunc.
type CommandFunc func(state wire.RealTimeJointStateEx) []wire.RealTimeJointCommandExData

// Endpoint is the external-controller side of the real-time exchange: it
// starts real-time mode over the control channel, then loops receiving
// state and replying with an echoed command until stopped.
type Endpoint struct {
	logger  logging.Logger
	control *transport.TCPConn
	data    *transport.UDPEndpoint
	period  time.Duration

	stopped int32
}

// Dial opens the control TCP connection and the UDP data connection.
func Dial(ctx context.Context, controlAddr, dataAddr string, period time.Duration, logger logging.Logger) (*Endpoint, error) {
	control, err := transport.DialTCP(ctx, controlAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "realtime: dial control %s", controlAddr)
	}
	data, err := transport.DialUDP(dataAddr)
	if err != nil {
		_ = control.Close()
		return nil, errors.Wrapf(err, "realtime: dial data %s", dataAddr)
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Endpoint{logger: logger, control: control, data: data, period: period}, nil
}

// Start sends START_REALTIME_MOTION_MODE over the control channel and
// returns once the controller acknowledges it.
func (e *Endpoint) Start(ctx context.Context) error {
	return e.controlCommand(ctx, wire.CommandStartRealTimeMotionMode)
}

// Stop sends STOP_REALTIME_MOTION_MODE over the control channel. The data
// loop (Run) observes the stop flag between cycles and returns.
func (e *Endpoint) Stop(ctx context.Context) error {
	atomic.StoreInt32(&e.stopped, 1)
	return e.controlCommand(ctx, wire.CommandStopRealTimeMotionMode)
}

func (e *Endpoint) controlCommand(ctx context.Context, command int32) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = e.control.SetDeadline(dl)
	} else {
		_ = e.control.SetDeadline(time.Time{})
	}
	header := wire.Header{MsgType: wire.MsgMotoMotionCtrl, CommType: wire.CommServiceRequest}
	body := wire.MotoMotionCtrl{GroupNo: -1, Sequence: wire.UnspecifiedSequence, Command: command}
	if err := e.control.Send(header, body); err != nil {
		return errors.Wrap(err, "realtime: control send")
	}
	msg, err := e.control.Recv()
	if err != nil {
		return errors.Wrap(err, "realtime: control recv")
	}
	reply, ok := msg.Body.(wire.MotoMotionReply)
	if !ok {
		return errors.Errorf("realtime: unexpected control reply type %T", msg.Body)
	}
	if reply.Result != wire.ResultSuccess {
		return errors.Errorf("realtime: control command %d failed, result=%s subcode=%d", command, reply.Result, reply.Subcode)
	}
	return nil
}

// Run loops: receive a state packet, compute a command via cmdFn, reply
// with the echoed message_id, until ctx is cancelled, Stop is called, or the
// channel becomes unusable.
func (e *Endpoint) Run(ctx context.Context, cmdFn CommandFunc) error {
	consecutiveTimeouts := 0
	for {
		if atomic.LoadInt32(&e.stopped) != 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.data.SetReadDeadline(time.Now().Add(e.period)); err != nil {
			return errors.Wrap(err, "realtime: set read deadline")
		}
		msg, err := e.data.Recv()
		if err != nil {
			if transport.IsTimeout(err) {
				metrics.RealTimeOverruns.Inc()
				consecutiveTimeouts++
				if consecutiveTimeouts > maxConsecutiveTimeouts {
					return ErrTooManyTimeouts
				}
				continue
			}
			return errors.Wrap(err, "realtime: data recv")
		}
		consecutiveTimeouts = 0

		state, ok := msg.Body.(wire.RealTimeJointStateEx)
		if !ok {
			e.logger.Warnw("realtime: ignoring non-state packet on data channel", "type", msg.Body)
			continue
		}

		groups := cmdFn(state)
		cmd := wire.RealTimeJointCommandEx{MessageID: state.MessageID, Groups: groups}
		header := wire.Header{MsgType: wire.MsgRealTimeJointCommandEx, CommType: wire.CommTopic}
		if err := e.data.Send(header, cmd); err != nil {
			return errors.Wrap(err, "realtime: data send")
		}
	}
}

// CheckEcho enforces the echo contract: a command's message_id must match
// the state packet it answers. Used by the simulator to validate inbound
// commands.
func CheckEcho(stateMessageID, commandMessageID int32) error {
	if stateMessageID != commandMessageID {
		return errors.Wrapf(ErrEchoMismatch, "state=%d command=%d", stateMessageID, commandMessageID)
	}
	return nil
}

// Close closes both the control and data connections.
func (e *Endpoint) Close() error {
	controlErr := e.control.Close()
	dataErr := e.data.Close()
	if controlErr != nil {
		return controlErr
	}
	return dataErr
}
