package simplemsg

import (
	"net"

	"github.com/pkg/errors"
)

// ControlGroupDefinition names one of the controller's motion groups, per
// spec.md §6. It is created at facade construction and never mutated.
type ControlGroupDefinition struct {
	GroupID    string
	GroupNo    int32
	NumJoints  int
	JointNames []string
}

// Validate checks the invariant len(JointNames) == NumJoints and that
// GroupNo falls within the wire protocol's group range.
func (d ControlGroupDefinition) Validate() error {
	if d.GroupID == "" {
		return errors.New("simplemsg: control group id is required")
	}
	if d.GroupNo < 0 || int(d.GroupNo) >= 4 {
		return errors.Errorf("simplemsg: group %q: groupno %d out of range [0,4)", d.GroupID, d.GroupNo)
	}
	if d.NumJoints <= 0 || d.NumJoints > 10 {
		return errors.Errorf("simplemsg: group %q: num_joints %d out of range [1,10]", d.GroupID, d.NumJoints)
	}
	if len(d.JointNames) != d.NumJoints {
		return errors.Errorf("simplemsg: group %q: len(joint_names)=%d != num_joints=%d", d.GroupID, len(d.JointNames), d.NumJoints)
	}
	return nil
}

// Options toggles which sub-facades New starts, per spec.md §6's
// "{start_motion, start_state, start_io, start_realtime}" surface.
type Options struct {
	StartMotion   bool
	StartState    bool
	StartIO       bool
	StartRealtime bool
}

// DefaultOptions starts everything except real-time mode, which a caller
// opts into explicitly since it changes the controller's operating mode.
func DefaultOptions() Options {
	return Options{StartMotion: true, StartState: true, StartIO: true, StartRealtime: false}
}

// Config parameterises New. ControllerAddr is a bare host; a host:port form
// is also accepted, but its port is ignored: every service, motion
// included, is dialled on its well-known port on that host.
type Config struct {
	ControllerAddr string
	Groups         []ControlGroupDefinition
	Options        Options
}

func (c Config) host() (string, error) {
	host, _, err := net.SplitHostPort(c.ControllerAddr)
	if err == nil {
		return host, nil
	}
	if c.ControllerAddr == "" {
		return "", errors.New("simplemsg: controller address is required")
	}
	return c.ControllerAddr, nil
}

func (c Config) Validate() error {
	if c.ControllerAddr == "" {
		return errors.New("simplemsg: controller address is required")
	}
	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if err := g.Validate(); err != nil {
			return err
		}
		if seen[g.GroupID] {
			return errors.Errorf("simplemsg: duplicate control group id %q", g.GroupID)
		}
		seen[g.GroupID] = true
	}
	return nil
}
