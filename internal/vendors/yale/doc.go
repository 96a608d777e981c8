// Package yale is a small blocking client for the Yale Smart Alarm cloud API.
//
// It logs in with a password grant, reads the panel mode and changes it.
// Every call blocks on network I/O, so callers are expected to run it off
// their own goroutine. Failures are reported as *Error values with a Kind.
package yale
