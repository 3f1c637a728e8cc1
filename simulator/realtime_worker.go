package simulator

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/motoman-devrel/simplemsg/realtime"
	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// serveRTControlConn answers START/STOP_REALTIME_MOTION_MODE, toggling the
// shared real-time-active flag the UDP loop consults.
func (s *Simulator) serveRTControlConn(conn *transport.TCPConn) {
	for {
		msg, err := conn.Recv()
		if err != nil {
			return
		}
		ctrl, ok := msg.Body.(wire.MotoMotionCtrl)
		if !ok {
			continue
		}
		switch ctrl.Command {
		case wire.CommandStartRealTimeMotionMode:
			atomic.StoreInt32(&s.rtActive, 1)
		case wire.CommandStopRealTimeMotionMode:
			atomic.StoreInt32(&s.rtActive, 0)
		}
		reply := wire.Header{MsgType: wire.MsgMotoMotionReply, CommType: wire.CommServiceReply, ReplyType: wire.ReplySuccess}
		if err := conn.Send(reply, wire.MotoMotionReply{Command: ctrl.Command, Result: wire.ResultSuccess}); err != nil {
			return
		}
	}
}

// runRTDataLoop sends RealTimeJointStateEx to every peer that has sent at
// least one command (learning its address the same way any UDP server
// does), at s.cfg.RTPeriod, and applies the mode semantics from spec.md
// §4.5 to each group's simulated state as commands arrive.
func (s *Simulator) runRTDataLoop(ctx context.Context) {
	defer s.wg.Done()

	go func() {
		for {
			msg, addr, err := s.rtData.RecvFrom()
			if err != nil {
				return
			}
			cmd, ok := msg.Body.(wire.RealTimeJointCommandEx)
			if !ok {
				continue
			}
			s.rtPeersMu.Lock()
			_, known := s.rtPeers[addr.String()]
			if !known {
				s.rtPeers[addr.String()] = addr
			}
			s.rtPeersMu.Unlock()
			s.applyRTCommand(addr, cmd)
		}
	}()

	period := s.cfg.RTPeriod
	if period <= 0 {
		period = realtime.DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var messageID int32
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if atomic.LoadInt32(&s.rtActive) == 0 {
			continue
		}
		messageID++
		s.rtMessageID.Store(messageID)

		var groups []wire.RealTimeJointStateExData
		for _, gs := range s.cfg.Groups {
			g, ok := s.group(gs.GroupNo)
			if !ok {
				continue
			}
			pos, vel := g.snapshot()
			groups = append(groups, wire.RealTimeJointStateExData{GroupNo: gs.GroupNo, Pos: pos, Vel: vel})
		}
		state := wire.RealTimeJointStateEx{MessageID: messageID, Mode: atomic.LoadInt32(&s.rtMode), Groups: groups}
		header := wire.Header{MsgType: wire.MsgRealTimeJointStateEx, CommType: wire.CommTopic}

		s.rtPeersMu.Lock()
		snapshot := make([]*net.UDPAddr, 0, len(s.rtPeers))
		for _, a := range s.rtPeers {
			snapshot = append(snapshot, a)
		}
		s.rtPeersMu.Unlock()
		for _, addr := range snapshot {
			if err := s.rtData.SendTo(addr, header, state); err != nil {
				s.logger.Warnw("simulator: rt send failed", "peer", addr, "error", err)
			}
		}
	}
}

// applyRTCommand enforces the echo contract and, if it holds, updates each
// named group's position/velocity per the active mode. A mismatch
// terminates that peer's real-time session (spec.md §4.5): it is dropped
// from the broadcast set and gets no further state packets. A later
// command datagram from the same address registers it again.
func (s *Simulator) applyRTCommand(peer *net.UDPAddr, cmd wire.RealTimeJointCommandEx) {
	expected := int32(s.rtMessageID.Load())
	if err := realtime.CheckEcho(expected, cmd.MessageID); err != nil {
		s.logger.Warnw("simulator: rt echo mismatch, terminating peer session", "peer", peer, "error", err)
		s.rtPeersMu.Lock()
		delete(s.rtPeers, peer.String())
		s.rtPeersMu.Unlock()
		return
	}

	mode := atomic.LoadInt32(&s.rtMode)
	period := s.cfg.RTPeriod
	if period <= 0 {
		period = realtime.DefaultPeriod
	}
	periodSeconds := period.Seconds()

	for _, sub := range cmd.Groups {
		g, ok := s.group(sub.GroupNo)
		if !ok {
			continue
		}
		g.mu.Lock()
		switch mode {
		case wire.RTModeIdle:
			// command ignored; position and velocity stay constant.
		case wire.RTModeJointPosition:
			oldPos := g.pos
			g.pos = sub.Command
			// spec.md §9 flags the original's vel=(pos-cmd)/period computed
			// after overwriting pos as a bug yielding zero velocity; this
			// computes the delta before the overwrite instead.
			for k := 0; k < wire.MaxJoints; k++ {
				g.vel[k] = (sub.Command[k] - oldPos[k]) / float32(periodSeconds)
			}
		case wire.RTModeJointVelocity:
			for k := 0; k < wire.MaxJoints; k++ {
				g.pos[k] += sub.Command[k] * float32(periodSeconds)
				g.vel[k] = sub.Command[k]
			}
		}
		g.mu.Unlock()
	}
}

// SetRealTimeMode sets the mode advertised in the next state packet; it is
// the simulator operator's choice, not something a peer negotiates.
func (s *Simulator) SetRealTimeMode(mode int32) {
	atomic.StoreInt32(&s.rtMode, mode)
}
