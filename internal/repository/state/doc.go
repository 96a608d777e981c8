// Package state implements persistence for the last known panel Status.
//
// The FileRepository stores and loads the status as protobuf JSON on disk and
// exposes a Repository interface that the coordinator depends on.
package state
