// Package metrics exposes panel commands, refreshes and state as Prometheus metrics.
package metrics
