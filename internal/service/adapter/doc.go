// Package adapter exposes one Yale panel as an alarm control panel:
// it validates codes, dispatches commands to the vendor client through the
// worker pool and maps vendor statuses onto panel states.
package adapter
