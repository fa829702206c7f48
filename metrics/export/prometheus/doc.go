// Package prometheus exposes credauth engine metrics as a Prometheus
// collector.
//
// [NewCollector] wraps an engine. Register it with your own registry, or
// mount [Collector.Handler] which serves it from a private one. Counters are
// named credauth_*_total and hashing latency is the
// credauth_hash_latency_seconds histogram.
package prometheus
