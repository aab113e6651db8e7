// Package engine wraps wazero for the ribosome.
//
// It owns the pieces of the pipeline that touch the wazero API directly:
//
//	Engine   - a wazero runtime plus its compilation cache and host module registry
//	Module   - a validated, immutable compiled guest
//	Instance - one running guest, owned by a single call
//	Memory   - bounds-checked access to a guest linear memory
//
// # Loading
//
// Engine.Compile pre-scans the binary with the wasm package, strips any start
// section and hands the rest to wazero for full validation. Malformed input
// fails with a load-phase BytecodeInvalid error and has no side effects.
//
// # Instantiation
//
// Instances are anonymous, so one Module can be instantiated concurrently, and
// never run start functions. Together with start-section stripping this
// guarantees that no guest code runs before the host import table is wired.
//
// # Host modules
//
// Host modules are instantiated once per Engine through InitHost. Concurrent
// callers racing on the same name see exactly one initialization.
package engine
