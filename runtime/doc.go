// Package runtime runs one exported guest function per call.
//
// # Quick Start
//
//	actions, actionsRx := action.NewChannel[action.Action](16)
//	observers, observersRx := action.NewChannel[*action.Observer](16)
//	go state.NewWorker(store, actionsRx, observersRx).Run(ctx)
//
//	rt, err := runtime.New(ctx, runtime.WithConfig(cfg), runtime.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	out, err := rt.Call(ctx, actions, observers, wasmBytes, "test_print")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(out.DebugOutput(), out.Result()) // [1337] 0
//
// # Stages
//
// A call moves through
//
//	not_started -> loaded -> resolved -> instantiated -> memory_primed -> executing -> completed
//
// and stops at the first failure with an error tagged by phase:
//
//	load         bytecode_invalid
//	resolve      import_unresolved
//	instantiate  instantiation_failed
//	prime        memory_export_missing, memory_not_writable
//	invoke       export_not_found, argument_mismatch, return_type_mismatch
//	execute      execution_fault, unknown_host_call, marshal_failed
//	dispatch     dispatch_channel_closed, dispatch_timeout, dispatch_rejected
//
// Everything up to and including invoke happens before any guest instruction
// runs. Start sections are stripped at load and start functions are never
// called.
//
// # Results
//
// The export must return exactly one value. i32 and i64 are rendered in
// signed decimal, f32 and f64 with strconv's shortest 'g' form.
//
// # Commits
//
// env.commit blocks the guest until the state worker signaled the observer for
// the dispatched action, or Config.DispatchTimeout elapsed. The guest receives
// the low 32 bits of the entry address.
//
// # Concurrency
//
// A Runtime may serve any number of concurrent calls. Each call gets its own
// guest instance and ExecutionContext holding its own clones of the channel
// senders.
package runtime
