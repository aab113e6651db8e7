package host

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ribosome/engine"
)

// Instantiate registers the table as the env host module of r.
// Each export dispatches to its row by index.
func (t *FunctionTable) Instantiate(ctx context.Context, r wazero.Runtime) error {
	builder := r.NewHostModuleBuilder(Namespace)
	for _, fn := range t.fns {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(t.hostFunc(fn.Index), fn.Signature.Params, fn.Signature.Results).
			WithParameterNames(fn.ParamNames...).
			Export(fn.Name)
	}
	_, err := builder.Instantiate(ctx)
	return err
}

// Instantiate registers the process-wide table as the env host module of r.
func Instantiate(ctx context.Context, r wazero.Runtime) error {
	return defaultTable.Instantiate(ctx, r)
}

func (t *FunctionTable) hostFunc(index int) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		call := &Call{Session: SessionFrom(ctx)}
		if call.Session != nil {
			call.Memory = call.Session.Memory()
		}
		if call.Memory == nil {
			if mem := mod.Memory(); mem != nil {
				call.Memory = engine.NewMemory(mem)
			}
		}
		if err := t.Dispatch(ctx, index, call, stack); err != nil {
			// wazero recovers the panic and returns err from the export call
			panic(err)
		}
	}
}
