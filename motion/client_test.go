package motion

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// fakeController accepts one connection and answers every MotoMotionCtrl
// request with a canned reply, letting a test script drive the scenario.
type fakeController struct {
	ln net.Listener
}

func newFakeController(t *testing.T) (*fakeController, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return &fakeController{ln: ln}, ln.Addr().String()
}

func (f *fakeController) serve(t *testing.T, reply func(req wire.Message) (wire.Header, wire.Body)) {
	t.Helper()
	go func() {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		server := transport.NewTCPConn(conn)
		defer server.Close()
		for {
			req, err := server.Recv()
			if err != nil {
				return
			}
			header, body := reply(req)
			if err := server.Send(header, body); err != nil {
				return
			}
		}
	}()
}

func replyHeader() wire.Header {
	return wire.Header{MsgType: wire.MsgMotoMotionReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
}

func TestCheckMotionReadyTrue(t *testing.T) {
	fc, addr := newFakeController(t)
	fc.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		ctrl := req.Body.(wire.MotoMotionCtrl)
		return replyHeader(), wire.MotoMotionReply{Command: ctrl.Command, Result: wire.ResultSuccess}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	ready, err := client.CheckMotionReady(context.Background())
	require.NoError(t, err)
	require.True(t, ready)
}

// S2: client surfaces RemoteFailure{result=ALARM, subcode=5001} for a
// START_SERVOS request answered with an alarm.
func TestStartServosRemoteFailure(t *testing.T) {
	fc, addr := newFakeController(t)
	fc.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		ctrl := req.Body.(wire.MotoMotionCtrl)
		return replyHeader(), wire.MotoMotionReply{Command: ctrl.Command, Result: wire.ResultAlarm, Subcode: 5001}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	err = client.StartServos(context.Background())
	require.Error(t, err)
	var rf *RemoteFailure
	require.ErrorAs(t, err, &rf)
	require.Equal(t, wire.ResultAlarm, rf.Result)
	require.EqualValues(t, 5001, rf.Subcode)
}

func TestSendJointTrajectoryPointNotReady(t *testing.T) {
	fc, addr := newFakeController(t)
	fc.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		ctrl := req.Body.(wire.MotoMotionCtrl)
		return replyHeader(), wire.MotoMotionReply{Command: ctrl.Command, Result: wire.ResultNotReady}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	pt := wire.JointTrajPtFull{GroupNo: 0, Sequence: 1, Time: 1}
	_, err = client.SendJointTrajectoryPoint(context.Background(), pt)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestSendJointTrajectoryPointExSuccess(t *testing.T) {
	fc, addr := newFakeController(t)
	var sawEx bool
	fc.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		switch b := req.Body.(type) {
		case wire.MotoMotionCtrl:
			return replyHeader(), wire.MotoMotionReply{Command: b.Command, Result: wire.ResultSuccess}
		case wire.JointTrajPtFullEx:
			sawEx = true
			return replyHeader(), wire.MotoMotionReply{Result: wire.ResultSuccess}
		default:
			t.Fatalf("unexpected request body %T", req.Body)
			return wire.Header{}, nil
		}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	pt := wire.JointTrajPtFullEx{Sequence: 0, Groups: []wire.JointTrajPtExData{{GroupNo: 0}, {GroupNo: 1}}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = client.SendJointTrajectoryPoint(ctx, pt)
	require.NoError(t, err)
	require.True(t, sawEx)
}

func TestDisconnectClosesConnection(t *testing.T) {
	fc, addr := newFakeController(t)
	fc.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		ctrl := req.Body.(wire.MotoMotionCtrl)
		return replyHeader(), wire.MotoMotionReply{Command: ctrl.Command, Result: wire.ResultSuccess}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)

	require.NoError(t, client.Disconnect(context.Background()))
	// A second send on the now-closed socket must fail.
	_, err = client.CheckMotionReady(context.Background())
	require.Error(t, err)
}
