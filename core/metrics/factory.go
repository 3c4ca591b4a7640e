package metrics

import (
	"fmt"

	"github.com/kilianp07/dronecoord/core/factory"
)

// sinks holds the assignment and conflict-scan sinks. infra/metrics
// registers "nop", "prometheus" and "influx" at init.
var sinks = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// SinkTypes lists the registered sink names.
func SinkTypes() []string { return sinks.Names() }

// NewMetricsSink builds the sinks configured under metrics.sinks. No sink
// yields a NopSink and several are fanned out through a MultiSink, so the
// engines always record into exactly one sink.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinks.Create(c)
		if err != nil {
			return nil, fmt.Errorf("metrics.sinks[%d] %s: %w", i, c.Type, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	}
	return NewMultiSink(built...), nil
}
