// Package metrics defines the events recorded by the base station and the
// sinks receiving them. Sinks like PromSink and InfluxSink implement
// MetricsSink plus any of the optional recorder interfaces and can be
// combined with NewMultiSink. NewMetricsSink returns a MultiSink
// automatically when multiple sinks are configured.
package metrics
