// Package server wires the alarm-panel process: vendor client, worker pool,
// coordinator, adapter and the MQTT, gRPC and HTTP surfaces.
package server
