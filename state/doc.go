// Package state is a reference implementation of the external state worker.
//
// The ribosome only talks to the worker through the action and observer
// channels. This package provides the other side of that boundary so calls can
// be exercised end to end: a Store that keeps entries in a cometbft-db database
// keyed by content address, and a Worker that applies commit actions in arrival
// order and signals their observers.
package state
