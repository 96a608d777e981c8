// Package coordinator owns the connection to the vendor panel and its last
// known status.
//
// A Coordinator polls the vendor client through the worker pool, keeps the
// result in a StatusCell, persists it through a Repository and notifies
// listeners after every refresh. The alarm adapter reads the cell and writes
// it after a successful command.
package coordinator
