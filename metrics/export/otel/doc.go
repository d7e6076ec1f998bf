// Package otel bridges jobAuth engine metrics into an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter. The
// verification latency histogram is reported as a cumulative
// "<name>_bucket" counter carrying an "le" attribute, plus "<name>_count".
// A single callback reads [jobAuth.Engine.MetricsSnapshot] per collection.
//
// The caller owns the MeterProvider.
package otel
