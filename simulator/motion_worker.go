package simulator

import (
	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// serveMotionConn answers MotoMotionCtrl with result=SUCCESS always (the
// simulator does not model alarm conditions, per spec.md §4.6), demuxes
// trajectory points by groupno into each group's motion buffer, and answers
// SelectTool / GetDhParameters with trivial canned replies.
func (s *Simulator) serveMotionConn(conn *transport.TCPConn) {
	for {
		msg, err := conn.Recv()
		if err != nil {
			return
		}

		switch b := msg.Body.(type) {
		case wire.MotoMotionCtrl:
			reply := wire.Header{MsgType: wire.MsgMotoMotionReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			body := wire.MotoMotionReply{GroupNo: b.GroupNo, Sequence: b.Sequence, Command: b.Command, Result: wire.ResultSuccess}
			if g, ok := s.group(b.GroupNo); ok && b.Command == wire.CommandCheckQueueCnt {
				body.Data[0] = float32(len(g.queue))
			}
			if err := conn.Send(reply, body); err != nil {
				return
			}

		case wire.JointTrajPtFull:
			if g, ok := s.group(b.GroupNo); ok {
				g.enqueue(goal{validFields: b.ValidFields, time: b.Time, pos: b.Pos, vel: b.Vel, acc: b.Acc})
			}
			reply := wire.Header{MsgType: wire.MsgMotoMotionReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, wire.MotoMotionReply{GroupNo: b.GroupNo, Sequence: b.Sequence, Result: wire.ResultSuccess}); err != nil {
				return
			}

		case wire.JointTrajPtFullEx:
			for _, sub := range b.Groups {
				if g, ok := s.group(sub.GroupNo); ok {
					g.enqueue(goal{validFields: sub.ValidFields, time: sub.Time, pos: sub.Pos, vel: sub.Vel, acc: sub.Acc})
				}
			}
			reply := wire.Header{MsgType: wire.MsgMotoMotionReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, wire.MotoMotionReply{Sequence: b.Sequence, Result: wire.ResultSuccess}); err != nil {
				return
			}

		case wire.SelectTool:
			reply := wire.Header{MsgType: wire.MsgMotoMotionReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, wire.MotoMotionReply{GroupNo: b.GroupNo, Sequence: b.Sequence, Result: wire.ResultSuccess}); err != nil {
				return
			}

		case wire.MotoGetDhParameters:
			reply := wire.Header{MsgType: wire.MsgMotoGetDhParameters, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
			if err := conn.Send(reply, s.dhParameters()); err != nil {
				return
			}

		default:
			s.logger.Warnw("simulator: motion worker ignoring unexpected message", "type", b)
		}
	}
}

// dhParameters reports a flat, zero-valued kinematic chain; DH geometry is
// outside this simulator's scope (no motion planning, per spec.md §1's
// non-goals) and exists here only so GetDhParameters has a well-formed
// reply to round-trip.
func (s *Simulator) dhParameters() wire.MotoGetDhParameters {
	return wire.MotoGetDhParameters{}
}
