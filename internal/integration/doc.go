// Package integration runs the alarm-panel server end to end against a fake
// Yale cloud API.
package integration
