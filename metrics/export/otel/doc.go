// Package otel publishes credauth engine metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per hashing latency bucket. One callback reads
// [credauth.Engine.MetricsSnapshot] on each collection. The caller owns the
// MeterProvider.
package otel
