// Package checker watches the panel through the alarm-panel server and
// reports every change of state or availability.
package checker
