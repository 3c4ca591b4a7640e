package assignment

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	assignmentAttempts      *prometheus.CounterVec
	assignmentRollbacks     prometheus.Counter
	assignmentReassignments prometheus.Counter
	assignmentDuration      *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, prometheus.Counter, *prometheus.HistogramVec) {
	att := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_attempts_total",
			Help: "Number of assignment attempts by outcome",
		},
		[]string{"outcome"},
	)
	rb := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_rollbacks_total",
			Help: "Number of pilot commits compensated after a drone commit failure",
		},
	)
	re := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_reassignments_total",
			Help: "Number of urgent reassignments handled",
		},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assignment_duration_seconds",
			Help:    "Duration of assignment attempts including store round trips",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
	return att, rb, re, dur
}

func init() {
	assignmentAttempts, assignmentRollbacks, assignmentReassignments, assignmentDuration = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers assignment metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(assignmentAttempts, assignmentRollbacks, assignmentReassignments, assignmentDuration)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	assignmentAttempts, assignmentRollbacks, assignmentReassignments, assignmentDuration = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
