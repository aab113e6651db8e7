package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which pipeline stage produced the error
type Phase string

const (
	PhaseLoad        Phase = "load"        // bytecode parsing and validation
	PhaseResolve     Phase = "resolve"     // import resolution
	PhaseInstantiate Phase = "instantiate" // guest instantiation
	PhasePrime       Phase = "prime"       // parameter block write
	PhaseInvoke      Phase = "invoke"      // export lookup and signature checks
	PhaseExecute     Phase = "execute"     // guest code and host calls
	PhaseExtract     Phase = "extract"     // result encoding
	PhaseDispatch    Phase = "dispatch"    // action bridge
	PhaseConfig      Phase = "config"      // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindBytecodeInvalid       Kind = "bytecode_invalid"
	KindImportUnresolved      Kind = "import_unresolved"
	KindInstantiationFailed   Kind = "instantiation_failed"
	KindMemoryExportMissing   Kind = "memory_export_missing"
	KindMemoryNotWritable     Kind = "memory_not_writable"
	KindExportNotFound        Kind = "export_not_found"
	KindReturnTypeMismatch    Kind = "return_type_mismatch"
	KindArgumentMismatch      Kind = "argument_mismatch"
	KindUnknownHostCall       Kind = "unknown_host_call"
	KindDispatchChannelClosed Kind = "dispatch_channel_closed"
	KindDispatchTimeout       Kind = "dispatch_timeout"
	KindDispatchRejected      Kind = "dispatch_rejected"
	KindMarshalFailed         Kind = "marshal_failed"
	KindExecutionFault        Kind = "execution_fault"
	KindInvalidInput          Kind = "invalid_input"
)

// NoIndex marks an error that is not tied to a host function index.
const NoIndex = -1

// Error is the structured error type used throughout the ribosome
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Name   string
	Detail string
	Index  int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Name != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(e.Name))
	}

	if e.Index > NoIndex {
		b.WriteString(" at index ")
		b.WriteString(strconv.Itoa(e.Index))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Kinds must match; phases must match only when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// Sentinels for errors.Is checks by kind.
var (
	ErrBytecodeInvalid       = &Error{Kind: KindBytecodeInvalid, Index: NoIndex}
	ErrImportUnresolved      = &Error{Kind: KindImportUnresolved, Index: NoIndex}
	ErrInstantiationFailed   = &Error{Kind: KindInstantiationFailed, Index: NoIndex}
	ErrMemoryExportMissing   = &Error{Kind: KindMemoryExportMissing, Index: NoIndex}
	ErrMemoryNotWritable     = &Error{Kind: KindMemoryNotWritable, Index: NoIndex}
	ErrExportNotFound        = &Error{Kind: KindExportNotFound, Index: NoIndex}
	ErrReturnTypeMismatch    = &Error{Kind: KindReturnTypeMismatch, Index: NoIndex}
	ErrArgumentMismatch      = &Error{Kind: KindArgumentMismatch, Index: NoIndex}
	ErrUnknownHostCall       = &Error{Kind: KindUnknownHostCall, Index: NoIndex}
	ErrDispatchChannelClosed = &Error{Kind: KindDispatchChannelClosed, Index: NoIndex}
	ErrDispatchTimeout       = &Error{Kind: KindDispatchTimeout, Index: NoIndex}
	ErrDispatchRejected      = &Error{Kind: KindDispatchRejected, Index: NoIndex}
	ErrMarshalFailed         = &Error{Kind: KindMarshalFailed, Index: NoIndex}
	ErrExecutionFault        = &Error{Kind: KindExecutionFault, Index: NoIndex}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
			Index: NoIndex,
		},
	}
}

// Name sets the import or export name the error refers to
func (b *Builder) Name(name string) *Builder {
	b.err.Name = name
	return b
}

// Index sets the host function index
func (b *Builder) Index(index int) *Builder {
	b.err.Index = index
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// BytecodeInvalid creates a load error for malformed bytecode
func BytecodeInvalid(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindBytecodeInvalid,
		Detail: detail,
		Cause:  cause,
		Index:  NoIndex,
	}
}

// ImportUnresolved creates a resolution error for an import the host does not provide
func ImportUnresolved(namespace, name, detail string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindImportUnresolved,
		Name:   namespace + "." + name,
		Detail: detail,
		Index:  NoIndex,
	}
}

// InstantiationFailed creates an instantiation error
func InstantiationFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiationFailed,
		Detail: "instantiate module",
		Cause:  cause,
		Index:  NoIndex,
	}
}

// MemoryExportMissing creates a priming error for a module without the named memory
func MemoryExportMissing(name string) *Error {
	return &Error{
		Phase:  PhasePrime,
		Kind:   KindMemoryExportMissing,
		Name:   name,
		Detail: "module does not export a linear memory with this name",
		Index:  NoIndex,
	}
}

// MemoryNotWritable creates a priming error for a rejected write
func MemoryNotWritable(offset uint32, length int, cause error) *Error {
	return &Error{
		Phase:  PhasePrime,
		Kind:   KindMemoryNotWritable,
		Detail: fmt.Sprintf("write of %d bytes at offset %d rejected", length, offset),
		Cause:  cause,
		Index:  NoIndex,
	}
}

// ExportNotFound creates an invoke error for a missing export
func ExportNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindExportNotFound,
		Name:   name,
		Detail: "no exported function with this name",
		Index:  NoIndex,
	}
}

// ReturnTypeMismatch creates an invoke error for an export whose results cannot be encoded
func ReturnTypeMismatch(name, detail string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindReturnTypeMismatch,
		Name:   name,
		Detail: detail,
		Index:  NoIndex,
	}
}

// ArgumentMismatch creates an invoke error for a wrong argument count
func ArgumentMismatch(name string, want, got int) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindArgumentMismatch,
		Name:   name,
		Detail: fmt.Sprintf("export takes %d argument(s), got %d", want, got),
		Value:  got,
		Index:  NoIndex,
	}
}

// UnknownHostCall creates the fault raised for a host index outside the table
func UnknownHostCall(index int) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindUnknownHostCall,
		Detail: "no host function registered at this index",
		Value:  index,
		Index:  index,
	}
}

// DispatchChannelClosed creates the fault raised when the state worker hung up
func DispatchChannelClosed(channel string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindDispatchChannelClosed,
		Name:   channel,
		Detail: "receiving end is gone",
		Cause:  cause,
		Index:  NoIndex,
	}
}

// DispatchTimeout creates the fault raised when an observer is not signaled in time
func DispatchTimeout(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindDispatchTimeout,
		Detail: detail,
		Cause:  cause,
		Index:  NoIndex,
	}
}

// DispatchRejected creates the fault raised when the state worker refused an action
func DispatchRejected(cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindDispatchRejected,
		Detail: "state worker rejected the action",
		Cause:  cause,
		Index:  NoIndex,
	}
}

// MarshalFailed creates an error for guest arguments that cannot be decoded
func MarshalFailed(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMarshalFailed,
		Detail: detail,
		Cause:  cause,
		Index:  NoIndex,
	}
}

// ExecutionFault wraps a trap or other failure raised while guest code runs
func ExecutionFault(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindExecutionFault,
		Name:   name,
		Detail: "guest execution failed",
		Cause:  cause,
		Index:  NoIndex,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
		Index:  NoIndex,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
		Index:  NoIndex,
	}
}
