// Package metrics defines the sink interfaces used to report assignment and
// conflict activity. MetricsSink is the mandatory interface; richer sinks
// implement the optional recorder interfaces and are discovered with a type
// assertion. Sinks are instantiated from configuration through the factory
// registry, and several configured sinks are combined in a MultiSink.
package metrics
