package realtime

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

func TestCheckEcho(t *testing.T) {
	require.NoError(t, CheckEcho(7, 7))
	err := CheckEcho(7, 8)
	require.ErrorIs(t, err, ErrEchoMismatch)
}

// fakeSimulator accepts one control connection (always SUCCESS) and serves
// one UDP peer, letting the test script drive the state sequence and assert
// on the echoed commands it receives back.
type fakeSimulator struct {
	controlLn net.Listener
	dataConn  *net.UDPConn
}

func newFakeSimulator(t *testing.T) (*fakeSimulator, string, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	udpAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	udpConn, err := net.ListenUDP("udp", udpAddr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = udpConn.Close() })

	return &fakeSimulator{controlLn: ln, dataConn: udpConn}, ln.Addr().String(), udpConn.LocalAddr().String()
}

func (f *fakeSimulator) serveControl(t *testing.T) {
	t.Helper()
	go func() {
		conn, err := f.controlLn.Accept()
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
			ctrl := req.Body.(wire.MotoMotionCtrl)
			reply := wire.Header{MsgType: wire.MsgMotoMotionReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := server.Send(reply, wire.MotoMotionReply{Command: ctrl.Command, Result: wire.ResultSuccess}); err != nil {
				return
			}
		}
	}()
}

// S-style: simulator sends two state packets with increasing message_id; the
// endpoint must echo each id back exactly.
func TestRunEchoesMessageID(t *testing.T) {
	fs, controlAddr, dataAddr := newFakeSimulator(t)
	fs.serveControl(t)

	ep, err := Dial(context.Background(), controlAddr, dataAddr, 20*time.Millisecond, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer ep.Close()
	require.NoError(t, ep.Start(context.Background()))

	clientAddr, ok := ep.data.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	sendState := func(id int32) {
		header := wire.Header{MsgType: wire.MsgRealTimeJointStateEx, CommType: wire.CommTopic}
		state := wire.RealTimeJointStateEx{MessageID: id, Mode: wire.RTModeIdle, Groups: []wire.RealTimeJointStateExData{{GroupNo: 0}}}
		encoded := wire.Encode(header, state)
		_, err := fs.dataConn.WriteToUDP(encoded, clientAddr)
		require.NoError(t, err)
	}

	received := make(chan int32, 2)
	go func() {
		buf := make([]byte, 1024)
		for i := 0; i < 2; i++ {
			n, _, err := fs.dataConn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			msg, _, err := wire.Decode(buf[:n])
			if err != nil {
				return
			}
			cmd := msg.Body.(wire.RealTimeJointCommandEx)
			received <- cmd.MessageID
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		_ = ep.Run(ctx, func(state wire.RealTimeJointStateEx) []wire.RealTimeJointCommandExData {
			return []wire.RealTimeJointCommandExData{{GroupNo: 0}}
		})
	}()

	sendState(1)
	id := <-received
	require.EqualValues(t, 1, id)

	sendState(2)
	id = <-received
	require.EqualValues(t, 2, id)
}
