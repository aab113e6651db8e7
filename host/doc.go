// Package host defines the capabilities a guest can import.
//
// The FunctionTable is the one source of truth for host calls. Each row holds a
// name, a signature and a handler; its position in the table is its index.
// Resolution, the env host module and dispatch are all derived from it, so a
// new capability is a single new row.
//
//	index  name    signature
//	0      print   (i32) -> ()
//	1      commit  (i32, i32) -> i32
//
// Resolution happens before instantiation: an import the table does not list,
// or one declared with a different signature, fails with ImportUnresolved and
// the guest never starts.
//
// Dispatch is total over indices. An index outside the table yields an
// UnknownHostCall error instead of aborting the process.
//
// Host functions find the state of the running call through the context passed
// to the guest export (see WithSession). Errors raised by a handler are thrown
// as panics carrying the typed error; wazero recovers them and returns them
// from the export call, where errors.As recovers the original value.
package host
