// Package httpapi serves the operational endpoints: Prometheus metrics and
// liveness and readiness probes.
package httpapi
