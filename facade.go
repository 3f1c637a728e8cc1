// Package simplemsg is the top-level facade over the MotoPlus Simple
// Message client quartet: motion control, state feedback, IO, and the
// real-time motion endpoint. It mirrors the teacher's pattern of one
// constructed object aggregating several subsystems behind a single
// lifecycle, generalized from one device to the four services a Simple
// Message controller exposes.
package simplemsg

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/ioctrl"
	"github.com/motoman-devrel/simplemsg/motion"
	"github.com/motoman-devrel/simplemsg/realtime"
	"github.com/motoman-devrel/simplemsg/state"
)

var errFacadeClosed = errors.New("simplemsg: facade is closed")

// Facade aggregates the sub-clients for one controller. Whichever of
// Motion, State, IO, RT were requested via Options are non-nil; the rest
// are nil and unused.
type Facade struct {
	Motion *motion.Client
	State  *state.Subscriber
	IO     *ioctrl.Client
	RT     *realtime.Endpoint

	logger logging.Logger
	groups map[string]ControlGroupDefinition
	mu     sync.Mutex
	closed bool
}

// ControlGroupView is a read-only snapshot of one control group's latest
// feedback, per spec.md §6's "control_groups" facade property.
type ControlGroupView struct {
	ControlGroupDefinition
	HasFeedback  bool
	Position     [10]float32
	Velocity     [10]float32
	Acceleration [10]float32
}

// New dials the services named in cfg.Options against cfg.ControllerAddr
// and returns a Facade. On any dial failure, every already-opened
// sub-client is closed before the error is returned.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	host, err := cfg.host()
	if err != nil {
		return nil, err
	}

	f := &Facade{logger: logger, groups: make(map[string]ControlGroupDefinition, len(cfg.Groups))}
	for _, g := range cfg.Groups {
		f.groups[g.GroupID] = g
	}

	if cfg.Options.StartMotion {
		f.Motion, err = motion.Dial(ctx, net.JoinHostPort(host, strconv.Itoa(motion.DefaultPort)), logger)
		if err != nil {
			return nil, f.closeAndWrap(err, "simplemsg: dial motion")
		}
	}
	if cfg.Options.StartState {
		f.State, err = state.Dial(ctx, net.JoinHostPort(host, strconv.Itoa(state.DefaultPort)), logger)
		if err != nil {
			return nil, f.closeAndWrap(err, "simplemsg: dial state")
		}
	}
	if cfg.Options.StartIO {
		f.IO, err = ioctrl.Dial(ctx, net.JoinHostPort(host, strconv.Itoa(ioctrl.DefaultPort)), logger)
		if err != nil {
			return nil, f.closeAndWrap(err, "simplemsg: dial io")
		}
	}
	if cfg.Options.StartRealtime {
		controlAddr := net.JoinHostPort(host, strconv.Itoa(realtime.DefaultControlPort))
		dataAddr := net.JoinHostPort(host, strconv.Itoa(realtime.DefaultDataPort))
		f.RT, err = realtime.Dial(ctx, controlAddr, dataAddr, realtime.DefaultPeriod, logger)
		if err != nil {
			return nil, f.closeAndWrap(err, "simplemsg: dial realtime")
		}
	}
	return f, nil
}

// attributes is the generic shape NewFromAttributes decodes, matching the
// field names a supervising process would hand down as JSON-decoded
// map[string]interface{} options (spec.md §6).
type attributes struct {
	ControllerAddr string `mapstructure:"controller_address"`
	Groups         []struct {
		GroupID    string   `mapstructure:"group_id"`
		GroupNo    int32    `mapstructure:"groupno"`
		NumJoints  int      `mapstructure:"num_joints"`
		JointNames []string `mapstructure:"joint_names"`
	} `mapstructure:"control_groups"`
	StartMotion   *bool `mapstructure:"start_motion"`
	StartState    *bool `mapstructure:"start_state"`
	StartIO       *bool `mapstructure:"start_io"`
	StartRealtime *bool `mapstructure:"start_realtime"`
}

// NewFromAttributes decodes a generic attribute map (as produced by a
// caller's own JSON config layer) into a Config and dials it, the way the
// teacher's resource.Config/Validate machinery would, but without that
// package's component-registration dependency.
func NewFromAttributes(ctx context.Context, raw map[string]interface{}, logger logging.Logger) (*Facade, error) {
	var attrs attributes
	if err := mapstructure.Decode(raw, &attrs); err != nil {
		return nil, errors.Wrap(err, "simplemsg: decode attributes")
	}

	cfg := Config{ControllerAddr: attrs.ControllerAddr, Options: DefaultOptions()}
	for _, g := range attrs.Groups {
		cfg.Groups = append(cfg.Groups, ControlGroupDefinition{
			GroupID: g.GroupID, GroupNo: g.GroupNo, NumJoints: g.NumJoints, JointNames: g.JointNames,
		})
	}
	if attrs.StartMotion != nil {
		cfg.Options.StartMotion = *attrs.StartMotion
	}
	if attrs.StartState != nil {
		cfg.Options.StartState = *attrs.StartState
	}
	if attrs.StartIO != nil {
		cfg.Options.StartIO = *attrs.StartIO
	}
	if attrs.StartRealtime != nil {
		cfg.Options.StartRealtime = *attrs.StartRealtime
	}
	return New(ctx, cfg, logger)
}

// ControlGroups returns the current view of every configured control
// group, pulling the latest feedback from State if it was started.
func (f *Facade) ControlGroups() map[string]ControlGroupView {
	views := make(map[string]ControlGroupView, len(f.groups))
	for id, def := range f.groups {
		view := ControlGroupView{ControlGroupDefinition: def}
		if f.State != nil {
			if fb, ok := f.State.JointFeedback(def.GroupNo); ok {
				view.HasFeedback = true
				view.Position = fb.Pos
				view.Velocity = fb.Vel
				view.Acceleration = fb.Acc
			}
		}
		views[id] = view
	}
	return views
}

// Close tears down whichever sub-clients were started, mirroring the
// teacher's TriviallyCloseable intent without depending on its resource
// package. It is safe to call more than once.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var firstErr error
	record := func(name string, err error) {
		if err == nil {
			return
		}
		if f.logger != nil {
			f.logger.Warnw("simplemsg: error closing sub-client", "client", name, "error", err)
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if f.Motion != nil {
		record("motion", f.Motion.Close())
	}
	if f.State != nil {
		record("state", f.State.Close())
	}
	if f.IO != nil {
		record("io", f.IO.Close())
	}
	if f.RT != nil {
		record("realtime", f.RT.Close())
	}
	return firstErr
}

// closeAndWrap closes whatever sub-clients were already opened on f and
// wraps err with msg, used when a later Dial in New fails.
func (f *Facade) closeAndWrap(err error, msg string) error {
	_ = f.Close()
	return errors.Wrap(err, msg)
}
