// Package alarm contains core domain types for the alarm panel.
//
// It defines the platform State vocabulary and the mapping from vendor status
// keywords onto it, the code format and feature flags a panel advertises, the
// Status snapshot the coordinator keeps, and the error taxonomy surfaced to
// callers of panel commands.
package alarm
