// Package worker runs blocking calls on a bounded goroutine pool.
//
// Submit hands a task to an Executor and returns a Future the caller awaits.
// The default Executor is an ants pool sized from configuration.
package worker
