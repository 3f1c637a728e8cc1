package simulator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motoman-devrel/simplemsg/wire"
)

func TestCubicHermiteBoundary(t *testing.T) {
	// A(pos=0,vel=0) -> B(pos=1,vel=0), delta=1s: midpoint must be 0.5 (S5).
	mid := cubicHermite(0, 0, 1, 0, 1, 0.5)
	require.InDelta(t, 0.5, mid, 1e-3)

	start := cubicHermite(0, 0, 1, 0, 1, 0)
	require.InDelta(t, 0, start, 1e-9)

	end := cubicHermite(0, 0, 1, 0, 1, 1)
	require.InDelta(t, 1, end, 1e-6)
}

// Invariant 9: a group's motion-buffer worker, given two points with
// velocities, produces samples whose first is near A.position and whose
// last equals B.position.
func TestGroupInterpolatesCubicSegment(t *testing.T) {
	g := newGroup(0, 1, 100)
	defer g.close()

	// First point establishes A (pos=0, vel=0) as the group's reached state.
	g.enqueue(goal{validFields: wire.ValidTime | wire.ValidPosition | wire.ValidVelocity, time: 0, pos: [10]float32{0}})
	require.Eventually(t, func() bool {
		pos, _ := g.snapshot()
		return pos[0] == 0
	}, time.Second, 5*time.Millisecond)

	// Second point is B (pos=1, vel=0) one second later: both endpoints
	// carry velocities, so the segment must use cubic Hermite.
	g.enqueue(goal{validFields: wire.ValidTime | wire.ValidPosition | wire.ValidVelocity, time: 1, pos: [10]float32{1}})

	require.Eventually(t, func() bool {
		pos, _ := g.snapshot()
		return pos[0] >= 0.999
	}, 2*time.Second, 5*time.Millisecond)

	pos, _ := g.snapshot()
	require.InDelta(t, 1.0, pos[0], 1e-3)
}

func TestGroupLinearFallbackWithoutVelocity(t *testing.T) {
	g := newGroup(0, 1, 100)
	defer g.close()

	// No velocity bit set on either point: linear interpolation.
	g.enqueue(goal{validFields: wire.ValidTime | wire.ValidPosition, time: 0.2, pos: [10]float32{2}})

	require.Eventually(t, func() bool {
		pos, _ := g.snapshot()
		return pos[0] >= 1.999
	}, time.Second, 5*time.Millisecond)
}

// If B's time does not come strictly after A's, spec.md §4.6 treats B as the
// start of a new trajectory rather than a transition to interpolate. With
// both endpoints carrying velocity, a naive cubic fit against a non-positive
// delta would divide by zero or near-zero; the group must instead move
// directly to B with no intermediate samples.
func TestGroupNewTrajectoryWithVelocityDoesNotDivideByZero(t *testing.T) {
	g := newGroup(0, 1, 100)
	defer g.close()

	// The group starts at time 0 with no velocity bit, so this first point is
	// reached by a 5s linear segment.
	g.enqueue(goal{validFields: wire.ValidTime | wire.ValidPosition | wire.ValidVelocity, time: 5, pos: [10]float32{2}, vel: [10]float32{1}})
	require.Eventually(t, func() bool {
		pos, _ := g.snapshot()
		return pos[0] == 2
	}, 6*time.Second, 5*time.Millisecond)

	// Second point's time does not exceed the first's: a new trajectory,
	// timed from its own `time` field.
	g.enqueue(goal{validFields: wire.ValidTime | wire.ValidPosition | wire.ValidVelocity, time: 1, pos: [10]float32{3}, vel: [10]float32{1}})

	require.Eventually(t, func() bool {
		pos, _ := g.snapshot()
		return pos[0] == 3
	}, 2*time.Second, 5*time.Millisecond)

	pos, vel := g.snapshot()
	require.Equal(t, float32(3), pos[0])
	require.False(t, math.IsNaN(float64(pos[0])))
	require.False(t, math.IsInf(float64(pos[0]), 0))
	require.Equal(t, float32(1), vel[0])
}

func TestGroupHaltClearsQueueAndFreezes(t *testing.T) {
	g := newGroup(0, 1, 100)
	defer g.close()

	g.enqueue(goal{validFields: wire.ValidTime | wire.ValidPosition, time: 5, pos: [10]float32{10}})
	time.Sleep(20 * time.Millisecond)
	g.haltAndHold()
	time.Sleep(20 * time.Millisecond)

	pos, _ := g.snapshot()
	frozen := pos[0]
	time.Sleep(50 * time.Millisecond)
	pos2, _ := g.snapshot()
	require.Equal(t, frozen, pos2[0])
}
