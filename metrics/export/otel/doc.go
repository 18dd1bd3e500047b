// Package otel publishes authgate metrics through an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per counter. The latency
// histogram becomes three gauges: <name>_bucket with an "le" attribute per
// cumulative bucket, <name>_count and <name>_sum in seconds. A single callback
// reads a snapshot on each collection cycle. The caller owns the MeterProvider.
package otel
