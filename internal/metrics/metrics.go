// Package metrics centralises the Prometheus collectors shared by the
// motion client, the real-time loop, and the simulator, so that an
// embedding process can register one metrics namespace regardless of which
// sub-clients it uses. Everything here is best-effort: a missed metric
// update is never allowed to affect control flow (spec.md §4.5, "best
// effort").
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "motoman_simplemsg"

var (
	motionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "motion",
		Name:      "request_latency_seconds",
		Help:      "Round-trip latency of motion service requests.",
		Buckets:   prometheus.DefBuckets,
	})

	// RealTimeOverruns counts real-time cycles in which no state packet
	// arrived before the cycle's receive deadline.
	RealTimeOverruns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "cycle_overruns_total",
		Help:      "Real-time motion cycles that missed their period deadline.",
	})

	// MotionBufferDepth reports the current queue depth of a simulator
	// group's motion buffer.
	MotionBufferDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "simulator",
		Name:      "motion_buffer_depth",
		Help:      "Pending trajectory points queued in a group's motion buffer.",
	}, []string{"group"})
)

func init() {
	prometheus.MustRegister(motionLatency, RealTimeOverruns, MotionBufferDepth)
}

// ObserveMotionLatency records one motion-service round trip.
func ObserveMotionLatency(d time.Duration) {
	motionLatency.Observe(d.Seconds())
}
