package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ribosome/errors"
	"github.com/wippyai/ribosome/wasm"
)

// Import is one guest import in declaration order.
// Params and Results are only set for function imports.
type Import struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Kind    byte
}

// Module is a compiled guest. It is never mutated after Compile.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	imports  []Import
	exports  []wasm.Export
	stripped bool
}

// Imports returns the guest's imports in declaration order.
func (m *Module) Imports() []Import {
	return m.imports
}

// Exports returns every guest export, functions and memories alike.
func (m *Module) Exports() []wasm.Export {
	return m.exports
}

// ExportedFunctions returns the definitions of every exported function keyed by name.
func (m *Module) ExportedFunctions() map[string]api.FunctionDefinition {
	return m.compiled.ExportedFunctions()
}

// Function returns the definition of one exported function.
func (m *Module) Function(name string) (api.FunctionDefinition, bool) {
	def, ok := m.compiled.ExportedFunctions()[name]
	return def, ok
}

// HasMemory reports whether the guest exports a memory with this name.
func (m *Module) HasMemory(name string) bool {
	_, ok := m.compiled.ExportedMemories()[name]
	return ok
}

// StartStripped reports whether Compile removed a start section.
func (m *Module) StartStripped() bool {
	return m.stripped
}

// Instantiate creates a new anonymous instance without running start functions.
// Every import must already be provided by an instantiated host module.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	modConfig := wazero.NewModuleConfig().
		WithName(""). // anonymous for parallel instantiation
		WithStartFunctions()

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.InstantiationFailed(err)
	}
	return &Instance{mod: mod}, nil
}

// Close releases the compiled code. Instances already created stay valid.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

func collectImports(summary *wasm.Summary, compiled wazero.CompiledModule) ([]Import, error) {
	defs := compiled.ImportedFunctions()
	imports := make([]Import, 0, len(summary.Imports))

	next := 0
	for _, imp := range summary.Imports {
		entry := Import{Module: imp.Module, Name: imp.Name, Kind: imp.Kind}
		if imp.Kind == wasm.KindFunc {
			if next >= len(defs) {
				return nil, fmt.Errorf("function import %s.%s has no definition", imp.Module, imp.Name)
			}
			def := defs[next]
			next++
			if module, name, ok := def.Import(); !ok || module != imp.Module || name != imp.Name {
				return nil, fmt.Errorf("function import %s.%s does not match compiled definition %q", imp.Module, imp.Name, def.DebugName())
			}
			entry.Params = def.ParamTypes()
			entry.Results = def.ResultTypes()
		}
		imports = append(imports, entry)
	}
	return imports, nil
}

// Instance is one running guest.
type Instance struct {
	mod api.Module
}

// Memory returns the exported memory with this name.
func (i *Instance) Memory(name string) (*Memory, bool) {
	mem := i.mod.ExportedMemory(name)
	if mem == nil {
		return nil, false
	}
	return &Memory{mem: mem}, true
}

// Function returns the exported function with this name, or nil.
func (i *Instance) Function(name string) api.Function {
	return i.mod.ExportedFunction(name)
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	if i.mod == nil {
		return nil
	}
	err := i.mod.Close(ctx)
	i.mod = nil
	return err
}
