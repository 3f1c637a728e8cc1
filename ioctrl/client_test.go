package ioctrl

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// fakeIOService accepts one connection and answers every request with a
// canned reply, letting a test script drive the scenario.
type fakeIOService struct {
	ln net.Listener
}

func newFakeIOService(t *testing.T) (*fakeIOService, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return &fakeIOService{ln: ln}, ln.Addr().String()
}

func (f *fakeIOService) serve(t *testing.T, reply func(req wire.Message) (wire.Header, wire.Body)) {
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

func TestReadIOBitTrue(t *testing.T) {
	fs, addr := newFakeIOService(t)
	fs.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		header := wire.Header{MsgType: wire.MsgMotoReadIOBitReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
		return header, wire.MotoReadIOBitReply{Value: 1}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	value, err := client.ReadIOBit(context.Background(), 10010)
	require.NoError(t, err)
	require.True(t, value)
}

func TestWriteIOBitSurfacesResultCode(t *testing.T) {
	fs, addr := newFakeIOService(t)
	fs.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		header := wire.Header{MsgType: wire.MsgMotoWriteIOBitReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
		return header, wire.MotoWriteIOBitReply{ResultCode: 1}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	err = client.WriteIOBit(context.Background(), 10010, true)
	require.Error(t, err)
}

func TestReadWriteIOGroupRoundTrip(t *testing.T) {
	fs, addr := newFakeIOService(t)
	var lastWritten uint32
	fs.serve(t, func(req wire.Message) (wire.Header, wire.Body) {
		switch b := req.Body.(type) {
		case wire.MotoWriteIOGroupRequest:
			lastWritten = b.Value
			header := wire.Header{MsgType: wire.MsgMotoWriteIOGroupReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			return header, wire.MotoWriteIOGroupReply{}
		case wire.MotoReadIOGroupRequest:
			header := wire.Header{MsgType: wire.MsgMotoReadIOGroupReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			return header, wire.MotoReadIOGroupReply{Value: lastWritten}
		default:
			t.Fatalf("unexpected request body %T", req.Body)
			return wire.Header{}, nil
		}
	})

	client, err := Dial(context.Background(), addr, logging.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteIOGroup(context.Background(), 27010, 0xABCD))
	value, err := client.ReadIOGroup(context.Background(), 27010)
	require.NoError(t, err)
	require.EqualValues(t, 0xABCD, value)
}
