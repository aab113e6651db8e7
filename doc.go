// Package ribosome is a WebAssembly execution host for sandboxed guest modules.
//
// A guest is a core WebAssembly module that imports a small, fixed set of host
// capabilities from the "env" namespace and exports one or more entry points.
// The ribosome loads the module, resolves its imports against the host function
// table, primes its linear memory, invokes one export and hands back the
// collected debug output and the string-encoded return value.
//
// Commits issued by the guest are forwarded to an external state worker over
// message channels. The host call blocks until the worker confirms the entry
// was applied, so guest code observes "commit returned" as "state is visible".
//
// # Architecture Overview
//
//	ribosome/            Root package with the guest Memory interface
//	├── runtime/         Runtime, Config, ExecutionContext and the Call pipeline
//	├── engine/          wazero integration: compile, instantiate, memory access
//	├── host/            Host function table, import resolution, dispatch
//	├── action/          Actions, entries, observers, channels and the dispatch bridge
//	├── state/           Reference state worker backed by cometbft-db
//	├── wasm/            Binary pre-scan used by the loader
//	├── errors/          Stage-tagged structured errors
//	└── cmd/ribosome/    Command line front end
//
// # Quick Start
//
//	actions, actionRx := action.NewChannel[action.Action](16)
//	observers, observerRx := action.NewChannel[*action.Observer](16)
//
//	store, _ := state.NewStore(state.BackendMemDB, "")
//	worker := state.NewWorker(store, actionRx, observerRx)
//	go worker.Run(ctx)
//
//	out, err := runtime.Call(ctx, actions, observers, wasmBytes, "test_print")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.DebugOutput(), out.Result()) // [1337] 0
//
// # Host ABI
//
// Namespace "env":
//
//	print  (i32) -> ()       append a value to the debug output
//	commit (i32, i32) -> i32 commit an entry and wait until it is applied
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Every call gets its own guest instance
// and execution context; only channel messages are shared between calls.
package ribosome
