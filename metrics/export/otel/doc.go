// Package otel publishes goSession metrics through an OpenTelemetry Meter.
//
// [New] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per cumulative histogram bucket, all fed by a single
// callback that reads a metrics snapshot on each collection. The caller owns
// the MeterProvider.
package otel
