// Package client sends a single command to the alarm-panel server.
package client
