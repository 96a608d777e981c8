// Package config defines the settings used by the alarm-panel binary and
// provides helpers to load, validate and save them in YAML format.
//
// Config holds the panel entry (id, name, code), the Yale cloud credentials,
// the optional MQTT broker used for Home Assistant discovery, and the local
// gRPC and HTTP listen addresses.
package config
