package runtime

import (
	"github.com/wippyai/ribosome/internal/wasmtest"
)

var (
	i32 = wasmtest.I32
	i64 = wasmtest.I64
)

// guest builds a module importing print and commit, exporting memory and
// every export defined by fns.
func guest(fns func(b *wasmtest.Builder, print, commit uint32)) []byte {
	b := wasmtest.New()
	print := b.ImportFunc("env", "print", wasmtest.Params(i32), nil)
	commit := b.ImportFunc("env", "commit", wasmtest.Params(i32, i32), wasmtest.Results(i32))
	fns(b, print, commit)
	b.Memory(1).ExportMemory("memory")
	return b.Bytes()
}

// testPrintModule exports test_print: print(1337); return 0.
func testPrintModule() []byte {
	return guest(func(b *wasmtest.Builder, print, _ uint32) {
		fn := b.Func(nil, wasmtest.Results(i32),
			wasmtest.I32Const(1337), wasmtest.Call(print), wasmtest.I32Const(0))
		b.ExportFunc("test_print", fn)
	})
}

// kitchenSinkModule exports one function per behavior under test.
func kitchenSinkModule() []byte {
	return guest(func(b *wasmtest.Builder, print, commit uint32) {
		b.ExportFunc("test_print", b.Func(nil, wasmtest.Results(i32),
			wasmtest.I32Const(1337), wasmtest.Call(print), wasmtest.I32Const(0)))

		b.ExportFunc("answer", b.Func(nil, wasmtest.Results(i32), wasmtest.I32Const(42)))

		b.ExportFunc("print_param", b.Func(wasmtest.Params(i32), wasmtest.Results(i32),
			wasmtest.LocalGet(0), wasmtest.Call(print), wasmtest.I32Const(0)))

		// prints p, p+1, p+2
		b.ExportFunc("emit", b.Func(wasmtest.Params(i32), wasmtest.Results(i32),
			wasmtest.LocalGet(0), wasmtest.Call(print),
			wasmtest.LocalGet(0), wasmtest.I32Const(1), wasmtest.I32Add(), wasmtest.Call(print),
			wasmtest.LocalGet(0), wasmtest.I32Const(2), wasmtest.I32Add(), wasmtest.Call(print),
			wasmtest.I32Const(0)))

		b.ExportFunc("primed", b.Func(nil, wasmtest.Results(i32),
			wasmtest.I32Const(0), wasmtest.I32Load8U(1)))

		b.ExportFunc("neg_i32", b.Func(nil, wasmtest.Results(i32), wasmtest.I32Const(-1)))
		b.ExportFunc("neg_i64", b.Func(nil, wasmtest.Results(i64), wasmtest.I64Const(-5)))
		b.ExportFunc("big_i64", b.Func(nil, wasmtest.Results(i64), wasmtest.I64Const(1<<40)))
		b.ExportFunc("half_f64", b.Func(nil, wasmtest.Results(wasmtest.F64), wasmtest.F64Const(1.5)))
		b.ExportFunc("quarter_f32", b.Func(nil, wasmtest.Results(wasmtest.F32), wasmtest.F32Const(0.25)))
		b.ExportFunc("nothing", b.Func(nil, nil))
		b.ExportFunc("pair", b.Func(nil, wasmtest.Results(i32, i32), wasmtest.I32Const(1), wasmtest.I32Const(2)))
		b.ExportFunc("trap", b.Func(nil, wasmtest.Results(i32), wasmtest.Unreachable()))
		b.ExportFunc("spin", b.Func(nil, wasmtest.Results(i32), wasmtest.Forever(), wasmtest.I32Const(0)))

		// commit(type at 1024, content at 2048), then print(1) to prove the
		// guest resumed after the worker answered
		b.ExportFunc("commit", b.Func(nil, wasmtest.Results(i32),
			wasmtest.I32Const(1024), wasmtest.I32Const(2048), wasmtest.Call(commit),
			wasmtest.I32Const(1), wasmtest.Call(print)))

		b.ExportFunc("commit_twice", b.Func(nil, wasmtest.Results(i32),
			wasmtest.I32Const(1024), wasmtest.I32Const(2048), wasmtest.Call(commit), wasmtest.Drop(),
			wasmtest.I32Const(1024), wasmtest.I32Const(3072), wasmtest.Call(commit)))

		b.Data(1024, wasmtest.Blob("post"))
		b.Data(2048, wasmtest.Blob("hello, world"))
		b.Data(3072, wasmtest.Blob("second"))
	})
}

// noMemoryModule exports test_print but no memory.
func noMemoryModule() []byte {
	b := wasmtest.New()
	print := b.ImportFunc("env", "print", wasmtest.Params(i32), nil)
	fn := b.Func(nil, wasmtest.Results(i32),
		wasmtest.I32Const(1337), wasmtest.Call(print), wasmtest.I32Const(0))
	b.ExportFunc("test_print", fn)
	return b.Bytes()
}

// unknownImportModule declares env.foo next to print.
func unknownImportModule() []byte {
	b := wasmtest.New()
	print := b.ImportFunc("env", "print", wasmtest.Params(i32), nil)
	b.ImportFunc("env", "foo", nil, nil)
	fn := b.Func(nil, wasmtest.Results(i32),
		wasmtest.I32Const(1337), wasmtest.Call(print), wasmtest.I32Const(0))
	b.Memory(1).ExportMemory("memory").ExportFunc("test_print", fn)
	return b.Bytes()
}

// startModule prints 99 from its start function and 1 from run.
func startModule() []byte {
	return guest(func(b *wasmtest.Builder, print, _ uint32) {
		init := b.Func(nil, nil, wasmtest.I32Const(99), wasmtest.Call(print))
		b.ExportFunc("run", b.Func(nil, wasmtest.Results(i32),
			wasmtest.I32Const(1), wasmtest.Call(print), wasmtest.I32Const(0)))
		b.Start(init)
	})
}

// zeroPageModule exports a memory with no pages.
func zeroPageModule() []byte {
	b := wasmtest.New()
	fn := b.Func(nil, wasmtest.Results(i32), wasmtest.I32Const(0))
	b.Memory(0).ExportMemory("memory").ExportFunc("run", fn)
	return b.Bytes()
}

// heapModule exports its memory as "heap" and commits from it.
func heapModule() []byte {
	b := wasmtest.New()
	commit := b.ImportFunc("env", "commit", wasmtest.Params(i32, i32), wasmtest.Results(i32))
	fn := b.Func(nil, wasmtest.Results(i32),
		wasmtest.I32Const(1024), wasmtest.I32Const(2048), wasmtest.Call(commit))
	b.Memory(1).ExportMemory("heap").ExportFunc("commit", fn).
		Data(1024, wasmtest.Blob("post")).
		Data(2048, wasmtest.Blob("from the heap"))
	return b.Bytes()
}
