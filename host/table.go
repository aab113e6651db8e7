package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ribosome/errors"
)

// Namespace is the import module name every host function lives under.
const Namespace = "env"

// Handler runs one host call. Params are read from stack and results written
// back into it, following wazero's GoModuleFunc convention.
type Handler func(ctx context.Context, call *Call, stack []uint64) error

// Function is one row of the table.
type Function struct {
	Handler    Handler
	Name       string
	ParamNames []string
	Signature  Signature
	Index      int
}

// FunctionTable is an ordered list of host functions indexed by position.
type FunctionTable struct {
	byName map[string]int
	fns    []Function
}

// NewFunctionTable builds a table from rows in index order.
// It panics on duplicate names since the table is fixed at init.
func NewFunctionTable(fns ...Function) *FunctionTable {
	t := &FunctionTable{
		byName: make(map[string]int, len(fns)),
		fns:    make([]Function, len(fns)),
	}
	for i, fn := range fns {
		if _, dup := t.byName[fn.Name]; dup {
			panic(fmt.Sprintf("host: duplicate function %q", fn.Name))
		}
		fn.Index = i
		t.fns[i] = fn
		t.byName[fn.Name] = i
	}
	return t
}

var defaultTable = NewFunctionTable(
	Function{
		Name:       "print",
		Signature:  Signature{Params: []api.ValueType{api.ValueTypeI32}},
		ParamNames: []string{"value"},
		Handler:    handlePrint,
	},
	Function{
		Name: "commit",
		Signature: Signature{
			Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			Results: []api.ValueType{api.ValueTypeI32},
		},
		ParamNames: []string{"type_ptr", "content_ptr"},
		Handler:    handleCommit,
	},
)

// Table returns the process-wide host function table.
func Table() *FunctionTable {
	return defaultTable
}

// Lookup finds a function by name.
func (t *FunctionTable) Lookup(name string) (Function, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Function{}, false
	}
	return t.fns[i], true
}

// At finds a function by index.
func (t *FunctionTable) At(index int) (Function, bool) {
	if index < 0 || index >= len(t.fns) {
		return Function{}, false
	}
	return t.fns[index], true
}

// Entries returns a copy of all rows in index order.
func (t *FunctionTable) Entries() []Function {
	out := make([]Function, len(t.fns))
	copy(out, t.fns)
	return out
}

// Len returns the number of rows.
func (t *FunctionTable) Len() int {
	return len(t.fns)
}

// Dispatch runs the handler at index. It is defined for every int: indices
// outside the table return UnknownHostCall.
func (t *FunctionTable) Dispatch(ctx context.Context, index int, call *Call, stack []uint64) error {
	fn, ok := t.At(index)
	if !ok {
		Logger().Warn("unknown host call", zap.Int("index", index))
		return errors.UnknownHostCall(index)
	}
	if call == nil || call.Session == nil {
		return errors.New(errors.PhaseExecute, errors.KindExecutionFault).
			Name(fn.Name).
			Index(index).
			Detail("host call outside of a call session").
			Build()
	}

	if err := fn.Handler(ctx, call, stack); err != nil {
		Logger().Warn("host call failed",
			zap.String("name", fn.Name),
			zap.Int("index", index),
			zap.Error(err))
		return err
	}
	Logger().Debug("host call", zap.String("name", fn.Name), zap.Int("index", index))
	return nil
}

// Dispatch runs a host call against the process-wide table.
func Dispatch(ctx context.Context, index int, call *Call, stack []uint64) error {
	return defaultTable.Dispatch(ctx, index, call, stack)
}
