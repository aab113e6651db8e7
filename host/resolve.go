package host

import (
	"fmt"

	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/errors"
	"github.com/wippyai/ribosome/wasm"
)

// Binding ties a guest import to a table row.
type Binding struct {
	Namespace string
	Name      string
	Signature Signature
	Index     int
}

// Resolve matches one function import against the table.
func (t *FunctionTable) Resolve(namespace, name string, sig Signature) (Binding, error) {
	if namespace != Namespace {
		return Binding{}, errors.ImportUnresolved(namespace, name, fmt.Sprintf("unknown namespace, only %q is provided", Namespace))
	}
	fn, ok := t.Lookup(name)
	if !ok {
		return Binding{}, errors.ImportUnresolved(namespace, name, "no host function with this name")
	}
	if !fn.Signature.Equal(sig) {
		return Binding{}, errors.ImportUnresolved(namespace, name,
			fmt.Sprintf("signature mismatch: host provides %s, guest declares %s", fn.Signature, sig))
	}
	return Binding{
		Namespace: namespace,
		Name:      name,
		Signature: fn.Signature,
		Index:     fn.Index,
	}, nil
}

// ResolveModule resolves every import of m in declaration order.
// Only function imports can be satisfied.
func (t *FunctionTable) ResolveModule(m *engine.Module) ([]Binding, error) {
	imports := m.Imports()
	bindings := make([]Binding, 0, len(imports))
	for _, imp := range imports {
		if imp.Kind != wasm.KindFunc {
			return nil, errors.ImportUnresolved(imp.Module, imp.Name,
				fmt.Sprintf("%s imports are not provided", wasm.KindName(imp.Kind)))
		}
		b, err := t.Resolve(imp.Module, imp.Name, Signature{Params: imp.Params, Results: imp.Results})
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

// Resolve matches one function import against the process-wide table.
func Resolve(namespace, name string, sig Signature) (Binding, error) {
	return defaultTable.Resolve(namespace, name, sig)
}

// ResolveModule resolves every import of m against the process-wide table.
func ResolveModule(m *engine.Module) ([]Binding, error) {
	return defaultTable.ResolveModule(m)
}
