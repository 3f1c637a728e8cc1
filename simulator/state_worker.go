package simulator

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/motoman-devrel/simplemsg/transport"
	"github.com/motoman-devrel/simplemsg/wire"
)

// serveStateConn publishes JOINT_FEEDBACK per group, then JOINT_FEEDBACK_EX,
// then ROBOT_STATUS, at s.cfg.StateRate, until the connection breaks.
func (s *Simulator) serveStateConn(conn *transport.TCPConn) {
	start := time.Now()
	limiter := rate.NewLimiter(rate.Limit(s.cfg.StateRate), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		var exGroups []wire.JointFeedback
		for _, gs := range s.cfg.Groups {
			g, ok := s.group(gs.GroupNo)
			if !ok {
				continue
			}
			pos, vel := g.snapshot()
			fb := wire.JointFeedback{
				GroupNo:     gs.GroupNo,
				ValidFields: wire.ValidTime | wire.ValidPosition | wire.ValidVelocity,
				Time:        float32(time.Since(start).Seconds()),
				Pos:         pos,
				Vel:         vel,
			}
			header := wire.Header{MsgType: wire.MsgJointFeedback, CommType: wire.CommTopic}
			if err := conn.Send(header, fb); err != nil {
				return
			}
			exGroups = append(exGroups, fb)
		}

		exHeader := wire.Header{MsgType: wire.MsgJointFeedbackEx, CommType: wire.CommTopic}
		if err := conn.Send(exHeader, wire.JointFeedbackEx{Groups: exGroups}); err != nil {
			return
		}

		statusHeader := wire.Header{MsgType: wire.MsgRobotStatus, CommType: wire.CommTopic}
		status := wire.RobotStatus{
			DrivesPowered:  wire.True,
			EStopped:       wire.False,
			InError:        wire.False,
			InMotion:       wire.Unknown,
			Mode:           wire.ModeAuto,
			MotionPossible: wire.True,
		}
		if err := conn.Send(statusHeader, status); err != nil {
			return
		}
	}
}
