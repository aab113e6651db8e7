// Package errors provides structured error types for the ribosome.
//
// Errors are categorized by Phase (the pipeline stage that failed) and Kind
// (the error category). The Error type carries the offending import or export
// name, the host function index where relevant, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindImportUnresolved).
//		Name("env.log").
//		Detail("no host function with this name").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ImportUnresolved("env", "log", "unknown name")
//	err := errors.UnknownHostCall(7)
//
// All errors implement the standard error interface and support errors.Is/As.
// The exported sentinels (ErrBytecodeInvalid, ErrExportNotFound, ...) match any
// error of the same kind regardless of the phase it was raised in.
package errors
