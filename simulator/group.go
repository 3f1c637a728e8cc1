package simulator

import (
	"strconv"
	"sync"
	"time"

	"github.com/motoman-devrel/simplemsg/internal/metrics"
	"github.com/motoman-devrel/simplemsg/wire"
)

// goal is one trajectory point queued for a group, in the controller's own
// units (radians, rad/s, rad/s^2, seconds).
type goal struct {
	validFields int32
	time        float32
	pos         [wire.MaxJoints]float32
	vel         [wire.MaxJoints]float32
	acc         [wire.MaxJoints]float32
}

func (g goal) hasVelocity() bool { return g.validFields&wire.ValidVelocity != 0 }

// group owns one control group's motion-buffer worker: a FIFO of queued
// goals, interpolated at bufferRate and exposed as the current position to
// the state-publish worker. This is the simulator's one non-trivial
// algorithm (spec.md §4.6).
type group struct {
	groupNo    int32
	numJoints  int
	bufferRate float64

	mu      sync.Mutex
	pos     [wire.MaxJoints]float32
	vel     [wire.MaxJoints]float32
	current goal // "A": the last point actually reached

	queue chan goal
	stop  chan struct{}
	done  chan struct{}
}

func newGroup(groupNo int32, numJoints int, bufferRate float64) *group {
	g := &group{
		groupNo:    groupNo,
		numJoints:  numJoints,
		bufferRate: bufferRate,
		queue:      make(chan goal, 256),
		stop:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go g.run()
	return g
}

// enqueue adds a new goal to the FIFO. Called from the motion worker's
// connection-handling goroutine.
func (g *group) enqueue(pt goal) {
	select {
	case g.queue <- pt:
	default:
		// Queue is saturated; drop the oldest rather than block the caller
		// indefinitely, and requeue the new point.
		<-g.queue
		g.queue <- pt
	}
	metrics.MotionBufferDepth.WithLabelValues(groupLabel(g.groupNo)).Set(float64(len(g.queue)))
}

// haltAndHold clears the pending queue and freezes at the current position,
// per spec.md §4.6 ("a stop signal clears the queue and freezes").
func (g *group) haltAndHold() {
	select {
	case g.stop <- struct{}{}:
	default:
	}
}

// snapshot returns a copy of the group's current interpolated position and
// velocity. Acceleration is not tracked or reported.
func (g *group) snapshot() (pos, vel [wire.MaxJoints]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pos, g.vel
}

func (g *group) close() { close(g.done) }

func (g *group) run() {
	for {
		select {
		case <-g.done:
			return
		case gl := <-g.queue:
			g.runSegment(gl)
		case <-g.stop:
			g.mu.Lock()
			g.current = goal{pos: g.pos, time: 0}
			g.mu.Unlock()
			g.drainQueue()
		}
	}
}

func (g *group) drainQueue() {
	for {
		select {
		case <-g.queue:
		default:
			metrics.MotionBufferDepth.WithLabelValues(groupLabel(g.groupNo)).Set(0)
			return
		}
	}
}

// runSegment interpolates from g.current to B, sampling at g.bufferRate and
// publishing each sample as the group's current position. Per spec.md §4.6,
// if B's time does not come strictly after A's, there is no valid transition
// to interpolate: B starts a fresh trajectory and is moved to directly, with
// no intermediate samples.
func (g *group) runSegment(b goal) {
	g.mu.Lock()
	a := g.current
	g.mu.Unlock()

	delta := float64(b.time) - float64(a.time)
	if delta <= 0 {
		g.moveDirect(b, float64(b.time))
		return
	}
	duration := delta

	cubic := a.hasVelocity() && b.hasVelocity()
	rate := g.bufferRate
	if rate <= 0 {
		rate = DefaultBufferRate
	}
	steps := int(duration * rate)
	if steps < 1 {
		steps = 1
	}
	period := time.Duration(duration / float64(steps) * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-g.done:
			return
		case <-g.stop:
			g.mu.Lock()
			g.current = goal{pos: g.pos, time: 0}
			g.mu.Unlock()
			g.drainQueue()
			return
		case <-ticker.C:
		}

		t := duration * float64(i) / float64(steps)
		var p [wire.MaxJoints]float32
		for k := 0; k < wire.MaxJoints; k++ {
			if cubic {
				p[k] = cubicHermite(a.pos[k], a.vel[k], b.pos[k], b.vel[k], delta, t)
			} else {
				p[k] = lerp(a.pos[k], b.pos[k], t/duration)
			}
		}
		g.mu.Lock()
		g.pos = p
		if i == steps {
			g.vel = b.vel
		}
		g.mu.Unlock()
	}
	g.commit(b)
}

// moveDirect waits out duration with no intermediate samples, then commits
// b as the new current position, mirroring the reference simulator's
// _move_to for a trajectory that cannot be interpolated against its
// predecessor. A stop signal during the wait freezes at the current
// position and discards b instead of committing it.
func (g *group) moveDirect(b goal, duration float64) {
	if duration <= 0 {
		g.commit(b)
		return
	}
	timer := time.NewTimer(time.Duration(duration * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-g.done:
		return
	case <-g.stop:
		g.mu.Lock()
		g.current = goal{pos: g.pos, time: 0}
		g.mu.Unlock()
		g.drainQueue()
		return
	case <-timer.C:
	}
	g.commit(b)
}

func (g *group) commit(b goal) {
	g.mu.Lock()
	g.pos = b.pos
	g.vel = b.vel
	g.current = b
	g.mu.Unlock()
}

// cubicHermite implements spec.md §4.6's boundary-condition cubic: given
// endpoints (ap, av) at local time 0 and (bp, bv) at local time delta,
// evaluate position at time t within the segment.
func cubicHermite(ap, av, bp, bv float32, delta, t float64) float32 {
	dx := float64(bp) - float64(ap)
	sumV := float64(bv) + float64(av)
	a1 := 6*dx/(delta*delta) - 2*(sumV+float64(av))/delta
	a2 := -12*dx/(delta*delta*delta) + 6*sumV/(delta*delta)
	p := float64(ap) + float64(av)*t + a1*t*t/2 + a2*t*t*t/6
	return float32(p)
}

func lerp(a, b float32, frac float64) float32 {
	return float32(float64(a) + (float64(b)-float64(a))*frac)
}

func groupLabel(groupNo int32) string {
	return strconv.Itoa(int(groupNo))
}
