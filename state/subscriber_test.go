package state

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

type fakePublisher struct {
	ln net.Listener
}

func newFakePublisher(t *testing.T) (*fakePublisher, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return &fakePublisher{ln: ln}, ln.Addr().String()
}

// publish waits for the subscriber's connection to be accepted, so the
// subscriber must already have dialled addr when it is called.
func (f *fakePublisher) publish(t *testing.T, msgs []wire.Message) *transport.TCPConn {
	t.Helper()
	connCh := make(chan *transport.TCPConn, 1)
	go func() {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		server := transport.NewTCPConn(conn)
		connCh <- server
		for _, m := range msgs {
			if err := server.Send(m.Header, m.Body); err != nil {
				return
			}
		}
	}()
	return <-connCh
}

func feedbackMsg(groupno int32) wire.Message {
	return wire.Message{
		Header: wire.Header{MsgType: wire.MsgJointFeedback, CommType: wire.CommTopic},
		Body:   wire.JointFeedback{GroupNo: groupno, Time: 1.5},
	}
}

func feedbackExMsg() wire.Message {
	return wire.Message{
		Header: wire.Header{MsgType: wire.MsgJointFeedbackEx, CommType: wire.CommTopic},
		Body:   wire.JointFeedbackEx{Groups: []wire.JointFeedback{{GroupNo: 0}}},
	}
}

func statusMsg() wire.Message {
	return wire.Message{
		Header: wire.Header{MsgType: wire.MsgRobotStatus, CommType: wire.CommTopic},
		Body:   wire.RobotStatus{DrivesPowered: wire.True, Mode: wire.ModeAuto},
	}
}

// S3: subscriber startup blocks until every snapshot kind has arrived once.
func TestStartBlocksUntilAllSnapshotKindsArrive(t *testing.T) {
	fp, addr := newFakePublisher(t)
	sub, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer sub.Close()

	server := fp.publish(t, []wire.Message{feedbackMsg(0), feedbackExMsg(), statusMsg()})
	defer server.Close()

	require.NoError(t, sub.Start(time.Second))

	fb, ok := sub.JointFeedback(0)
	require.True(t, ok)
	require.Equal(t, float32(1.5), fb.Time)

	_, ok = sub.JointFeedbackEx()
	require.True(t, ok)

	status, ok := sub.RobotStatus()
	require.True(t, ok)
	require.Equal(t, wire.True, status.DrivesPowered)
}

func TestStartTimesOutWithoutFeedback(t *testing.T) {
	fp, addr := newFakePublisher(t)
	sub, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer sub.Close()

	server := fp.publish(t, nil)
	defer server.Close()

	err = sub.Start(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrInitialFeedbackTimeout)
}

// Invariant: snapshots returned to callers are independent copies — mutating
// one must not affect the subscriber's internal state or a later snapshot.
func TestSnapshotIsolation(t *testing.T) {
	fp, addr := newFakePublisher(t)
	sub, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer sub.Close()

	server := fp.publish(t, []wire.Message{feedbackMsg(0), feedbackExMsg(), statusMsg(), feedbackMsg(1)})
	defer server.Close()
	require.NoError(t, sub.Start(time.Second))

	require.Eventually(t, func() bool {
		_, ok := sub.JointFeedback(1)
		return ok
	}, time.Second, 5*time.Millisecond)

	fbEx, ok := sub.JointFeedbackEx()
	require.True(t, ok)
	fbEx.Groups[0].GroupNo = 99 // mutate the returned copy

	again, ok := sub.JointFeedbackEx()
	require.True(t, ok)
	require.EqualValues(t, 0, again.Groups[0].GroupNo)
}

func TestCallbackReceivesSnapshotOnUpdate(t *testing.T) {
	fp, addr := newFakePublisher(t)
	sub, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer sub.Close()

	updates := make(chan Snapshot, 8)
	sub.OnUpdate(func(s Snapshot) { updates <- s })

	server := fp.publish(t, []wire.Message{feedbackMsg(0), feedbackExMsg(), statusMsg()})
	defer server.Close()

	require.NoError(t, sub.Start(time.Second))
	select {
	case s := <-updates:
		require.NotNil(t, s.JointFeedback)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for callback")
	}
}
