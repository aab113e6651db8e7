// Package wasm provides the binary pre-scan used when loading guest bytecode.
//
// The scan checks the module header, walks every section header and decodes
// the import and export sections. It is deliberately shallow: full validation
// of function bodies is left to the compiler. What it adds is the information
// the loader needs before compilation:
//
//	summary, err := wasm.Scan(data)
//	if err != nil {
//	    // malformed header, truncated section, component binary, ...
//	}
//	for _, imp := range summary.Imports {
//	    fmt.Println(imp.Module, imp.Name, wasm.KindName(imp.Kind))
//	}
//
// StripStart removes the start section so that no guest routine runs as a
// side effect of instantiation.
package wasm
