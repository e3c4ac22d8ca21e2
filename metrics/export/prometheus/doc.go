// Package prometheus exposes engine counters and latency histograms through
// client_golang.
//
// [Collector] reads [sessionauth.Engine.MetricsSnapshot] on each scrape and
// emits const metrics named sessionauth_*_total and
// sessionauth_*_latency_seconds. [Handler] wraps a private registry so the
// global default registry is never touched.
package prometheus
