// Package hassio publishes the panel to Home Assistant over MQTT discovery
// and turns Home Assistant commands into panel operations.
package hassio
