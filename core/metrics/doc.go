// Package metrics exposes reconciliation telemetry to Prometheus.
package metrics
