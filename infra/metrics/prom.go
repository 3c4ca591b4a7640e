package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/dronecoord/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes assignment results and conflict scans as Prometheus
// metrics.
type PromSink struct {
	results   *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	rollbacks *prometheus.CounterVec
	conflicts *prometheus.GaugeVec
}

// NewPromSink registers the sink collectors on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mission_assignment_results_total",
		Help: "Assignment attempts by action, outcome and failure reason",
	}, []string{"action", "outcome", "reason"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mission_assignment_latency_seconds",
		Help:    "End to end time of an assignment attempt",
		Buckets: prometheus.DefBuckets,
	}, []string{"action", "outcome"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mission_assignment_rollbacks_total",
		Help: "Compensating pilot rollbacks by result",
	}, []string{"succeeded"})
	conflicts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "conflicts_detected",
		Help: "Conflicts found by the latest scan, per kind",
	}, []string{"kind"})

	var err error
	if results, err = register(reg, results); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if rollbacks, err = register(reg, rollbacks); err != nil {
		return nil, err
	}
	if conflicts, err = register(reg, conflicts); err != nil {
		return nil, err
	}
	return &PromSink{results: results, latency: latency, rollbacks: rollbacks, conflicts: conflicts}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAssignment counts the attempt and observes its duration.
func (s *PromSink) RecordAssignment(res coremetrics.AssignmentResult) error {
	s.results.WithLabelValues(res.Action, res.Outcome, res.Reason).Inc()
	s.latency.WithLabelValues(res.Action, res.Outcome).Observe(res.Duration.Seconds())
	return nil
}

// RecordRollback counts compensating rollbacks.
func (s *PromSink) RecordRollback(ev coremetrics.RollbackEvent) error {
	label := "false"
	if ev.Succeeded {
		label = "true"
	}
	s.rollbacks.WithLabelValues(label).Inc()
	return nil
}

// RecordConflictScan sets one gauge per conflict kind. Kinds absent from the
// scan are reset to zero so resolved conflicts disappear from dashboards.
func (s *PromSink) RecordConflictScan(scan coremetrics.ConflictScan) error {
	s.conflicts.Reset()
	for kind, n := range scan.Counts {
		s.conflicts.WithLabelValues(string(kind)).Set(float64(n))
	}
	return nil
}
