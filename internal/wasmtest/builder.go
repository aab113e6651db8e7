// Package wasmtest builds small core WebAssembly binaries for tests.
//
// Guests are assembled section by section:
//
//	b := wasmtest.New()
//	print := b.ImportFunc("env", "print", wasmtest.Params(wasmtest.I32), nil)
//	fn := b.Func(nil, wasmtest.Results(wasmtest.I32),
//		wasmtest.I32Const(1337), wasmtest.Call(print), wasmtest.I32Const(0))
//	b.Memory(1).ExportMemory("memory").ExportFunc("test_print", fn)
//	bin := b.Bytes()
//
// Imports must be declared before any Func call so function indices stay stable.
package wasmtest

import (
	"bytes"
	"encoding/binary"
)

// ValType is a core value type encoding.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// Params is a readability helper for parameter lists.
func Params(types ...ValType) []ValType { return types }

// Results is a readability helper for result lists.
func Results(types ...ValType) []ValType { return types }

type funcType struct {
	params  []ValType
	results []ValType
}

type importEntry struct {
	module  string
	name    string
	kind    byte
	typeIdx uint32
	min     uint32
}

type exportEntry struct {
	name  string
	kind  byte
	index uint32
}

type dataSegment struct {
	bytes  []byte
	offset uint32
}

// Builder assembles a module.
type Builder struct {
	start      *uint32
	memory     *uint32
	types      []funcType
	imports    []importEntry
	funcs      []uint32
	bodies     [][]byte
	exports    []exportEntry
	data       []dataSegment
	funcImport uint32
}

// New returns an empty module builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) typeIndex(params, results []ValType) uint32 {
	for i, t := range b.types {
		if bytes.Equal(valBytes(t.params), valBytes(params)) && bytes.Equal(valBytes(t.results), valBytes(results)) {
			return uint32(i)
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []ValType) uint32 {
	b.imports = append(b.imports, importEntry{
		module:  module,
		name:    name,
		kind:    0x00,
		typeIdx: b.typeIndex(params, results),
	})
	b.funcImport++
	return b.funcImport - 1
}

// ImportMemory declares a memory import with the given minimum page count.
func (b *Builder) ImportMemory(module, name string, minPages uint32) *Builder {
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: 0x02, min: minPages})
	return b
}

// ImportGlobal declares an immutable i32 global import.
func (b *Builder) ImportGlobal(module, name string) *Builder {
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: 0x03})
	return b
}

// Func defines a function with no locals and returns its function index.
func (b *Builder) Func(params, results []ValType, body ...[]byte) uint32 {
	b.funcs = append(b.funcs, b.typeIndex(params, results))
	var code bytes.Buffer
	code.WriteByte(0x00) // no local declarations
	for _, instr := range body {
		code.Write(instr)
	}
	code.WriteByte(0x0b)
	b.bodies = append(b.bodies, code.Bytes())
	return b.funcImport + uint32(len(b.funcs)-1)
}

// Memory defines memory 0 with the given minimum page count.
func (b *Builder) Memory(minPages uint32) *Builder {
	b.memory = &minPages
	return b
}

// ExportMemory exports memory 0.
func (b *Builder) ExportMemory(name string) *Builder {
	b.exports = append(b.exports, exportEntry{name: name, kind: 0x02})
	return b
}

// ExportFunc exports a function by index.
func (b *Builder) ExportFunc(name string, index uint32) *Builder {
	b.exports = append(b.exports, exportEntry{name: name, kind: 0x00, index: index})
	return b
}

// Start sets the start function.
func (b *Builder) Start(index uint32) *Builder {
	b.start = &index
	return b
}

// Data adds an active data segment for memory 0.
func (b *Builder) Data(offset uint32, data []byte) *Builder {
	b.data = append(b.data, dataSegment{offset: offset, bytes: data})
	return b
}

// Bytes encodes the module.
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	if len(b.types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.types)))
		for _, t := range b.types {
			sec.WriteByte(0x60)
			writeVec(&sec, valBytes(t.params))
			writeVec(&sec, valBytes(t.results))
		}
		writeSection(&out, 1, sec.Bytes())
	}

	if len(b.imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.imports)))
		for _, imp := range b.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(imp.kind)
			switch imp.kind {
			case 0x00:
				writeU32(&sec, imp.typeIdx)
			case 0x02:
				sec.WriteByte(0x00)
				writeU32(&sec, imp.min)
			case 0x03:
				sec.Write([]byte{byte(I32), 0x00})
			}
		}
		writeSection(&out, 2, sec.Bytes())
	}

	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.funcs)))
		for _, idx := range b.funcs {
			writeU32(&sec, idx)
		}
		writeSection(&out, 3, sec.Bytes())
	}

	if b.memory != nil {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		sec.WriteByte(0x00)
		writeU32(&sec, *b.memory)
		writeSection(&out, 5, sec.Bytes())
	}

	if len(b.exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.exports)))
		for _, e := range b.exports {
			writeName(&sec, e.name)
			sec.WriteByte(e.kind)
			writeU32(&sec, e.index)
		}
		writeSection(&out, 7, sec.Bytes())
	}

	if b.start != nil {
		var sec bytes.Buffer
		writeU32(&sec, *b.start)
		writeSection(&out, 8, sec.Bytes())
	}

	if len(b.bodies) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.bodies)))
		for _, body := range b.bodies {
			writeVec(&sec, body)
		}
		writeSection(&out, 10, sec.Bytes())
	}

	if len(b.data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.data)))
		for _, d := range b.data {
			sec.WriteByte(0x00) // active, memory 0
			sec.Write(I32Const(int32(d.offset)))
			sec.WriteByte(0x0b)
			writeVec(&sec, d.bytes)
		}
		writeSection(&out, 11, sec.Bytes())
	}

	return out.Bytes()
}

// Blob encodes a length-prefixed byte string (u32 little-endian length, then bytes).
func Blob(s string) []byte {
	out := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(out, uint32(len(s)))
	copy(out[4:], s)
	return out
}

func valBytes(types []ValType) []byte {
	out := make([]byte, len(types))
	for i, t := range types {
		out[i] = byte(t)
	}
	return out
}

func writeSection(w *bytes.Buffer, id byte, payload []byte) {
	w.WriteByte(id)
	writeVec(w, payload)
}

func writeVec(w *bytes.Buffer, b []byte) {
	writeU32(w, uint32(len(b)))
	w.Write(b)
}

func writeName(w *bytes.Buffer, s string) {
	writeVec(w, []byte(s))
}

// writeU32 writes an unsigned LEB128 value
func writeU32(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// writeS64 writes a signed LEB128 value
func writeS64(w *bytes.Buffer, v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.WriteByte(b)
	}
}
