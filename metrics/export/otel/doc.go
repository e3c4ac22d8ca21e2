// Package otel bridges engine metrics to an OpenTelemetry Meter.
//
// [NewExporter] creates an Int64ObservableCounter per counter and a set of
// gauges per latency histogram (one per cumulative bucket plus count and sum).
// The caller owns the MeterProvider.
package otel
