package simplemsg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"

	"github.com/motoman-devrel/simplemsg/simulator"
)

func newTestFacade(t *testing.T, groups []ControlGroupDefinition) *Facade {
	t.Helper()
	logger := logging.NewTestLogger(t)

	simGroups := make([]simulator.GroupSpec, len(groups))
	for i, g := range groups {
		simGroups[i] = simulator.GroupSpec{GroupNo: g.GroupNo, NumJoints: g.NumJoints}
	}
	sim, _, err := simulator.New(simulator.Config{Addr: "127.0.0.1", Groups: simGroups}, logger)
	require.NoError(t, err)
	sim.Serve(context.Background())
	t.Cleanup(func() { _ = sim.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := New(ctx, Config{ControllerAddr: "127.0.0.1", Groups: groups, Options: DefaultOptions()}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestNewDialsConfiguredSubClients(t *testing.T) {
	f := newTestFacade(t, []ControlGroupDefinition{{GroupID: "arm", GroupNo: 0, NumJoints: 1, JointNames: []string{"j1"}}})
	require.NotNil(t, f.Motion)
	require.NotNil(t, f.State)
	require.NotNil(t, f.IO)
	require.Nil(t, f.RT)
}

func TestControlGroupsReflectsStateFeedback(t *testing.T) {
	f := newTestFacade(t, []ControlGroupDefinition{{GroupID: "arm", GroupNo: 0, NumJoints: 1, JointNames: []string{"j1"}}})
	require.NoError(t, f.State.Start(time.Second))

	views := f.ControlGroups()
	view, ok := views["arm"]
	require.True(t, ok)
	require.True(t, view.HasFeedback)
	require.Equal(t, int32(0), view.GroupNo)
}

func TestCloseIsIdempotentAndMarksUnhealthy(t *testing.T) {
	f := newTestFacade(t, []ControlGroupDefinition{{GroupID: "arm", GroupNo: 0, NumJoints: 1, JointNames: []string{"j1"}}})
	require.NoError(t, f.Healthy())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	require.Error(t, f.Healthy())
}

func TestNewFromAttributesDecodesGenericMap(t *testing.T) {
	logger := logging.NewTestLogger(t)
	sim, _, err := simulator.New(simulator.Config{Addr: "127.0.0.1", Groups: []simulator.GroupSpec{{GroupNo: 0, NumJoints: 1}}}, logger)
	require.NoError(t, err)
	sim.Serve(context.Background())
	t.Cleanup(func() { _ = sim.Close() })

	raw := map[string]interface{}{
		"controller_address": "127.0.0.1",
		"control_groups": []interface{}{
			map[string]interface{}{
				"group_id":    "arm",
				"groupno":     0,
				"num_joints":  1,
				"joint_names": []interface{}{"j1"},
			},
		},
		"start_realtime": false,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := NewFromAttributes(ctx, raw, logger)
	require.NoError(t, err)
	defer f.Close()

	require.NotNil(t, f.Motion)
	require.Nil(t, f.RT)
	views := f.ControlGroups()
	_, ok := views["arm"]
	require.True(t, ok)
}
