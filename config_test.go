package simplemsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControlGroupDefinitionValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d := ControlGroupDefinition{GroupID: "arm", GroupNo: 0, NumJoints: 6, JointNames: []string{"j1", "j2", "j3", "j4", "j5", "j6"}}
		require.NoError(t, d.Validate())
	})

	t.Run("joint name count mismatch", func(t *testing.T) {
		d := ControlGroupDefinition{GroupID: "arm", GroupNo: 0, NumJoints: 6, JointNames: []string{"j1"}}
		require.Error(t, d.Validate())
	})

	t.Run("groupno out of range", func(t *testing.T) {
		d := ControlGroupDefinition{GroupID: "arm", GroupNo: 4, NumJoints: 1, JointNames: []string{"j1"}}
		require.Error(t, d.Validate())
	})

	t.Run("missing group id", func(t *testing.T) {
		d := ControlGroupDefinition{GroupNo: 0, NumJoints: 1, JointNames: []string{"j1"}}
		require.Error(t, d.Validate())
	})
}

func TestConfigValidateRejectsDuplicateGroupIDs(t *testing.T) {
	cfg := Config{
		ControllerAddr: "10.0.0.5",
		Groups: []ControlGroupDefinition{
			{GroupID: "arm", GroupNo: 0, NumJoints: 1, JointNames: []string{"j1"}},
			{GroupID: "arm", GroupNo: 1, NumJoints: 1, JointNames: []string{"j1"}},
		},
	}
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRequiresAddr(t *testing.T) {
	cfg := Config{}
	require.Error(t, cfg.Validate())
}

func TestConfigHostSplitsPort(t *testing.T) {
	cfg := Config{ControllerAddr: "10.0.0.5:50240"}
	host, err := cfg.host()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", host)
}

func TestConfigHostBareAddress(t *testing.T) {
	cfg := Config{ControllerAddr: "10.0.0.5"}
	host, err := cfg.host()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", host)
}
