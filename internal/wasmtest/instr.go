package wasmtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// I32Const encodes i32.const.
func I32Const(v int32) []byte {
	var w bytes.Buffer
	w.WriteByte(0x41)
	writeS64(&w, int64(v))
	return w.Bytes()
}

// I64Const encodes i64.const.
func I64Const(v int64) []byte {
	var w bytes.Buffer
	w.WriteByte(0x42)
	writeS64(&w, v)
	return w.Bytes()
}

// F32Const encodes f32.const.
func F32Const(v float32) []byte {
	out := make([]byte, 5)
	out[0] = 0x43
	binary.LittleEndian.PutUint32(out[1:], math.Float32bits(v))
	return out
}

// F64Const encodes f64.const.
func F64Const(v float64) []byte {
	out := make([]byte, 9)
	out[0] = 0x44
	binary.LittleEndian.PutUint64(out[1:], math.Float64bits(v))
	return out
}

// Call encodes call.
func Call(index uint32) []byte {
	var w bytes.Buffer
	w.WriteByte(0x10)
	writeU32(&w, index)
	return w.Bytes()
}

// LocalGet encodes local.get.
func LocalGet(index uint32) []byte {
	var w bytes.Buffer
	w.WriteByte(0x20)
	writeU32(&w, index)
	return w.Bytes()
}

// I32Load8U encodes i32.load8_u with alignment 0 at a static offset.
func I32Load8U(offset uint32) []byte {
	var w bytes.Buffer
	w.WriteByte(0x2d)
	writeU32(&w, 0)
	writeU32(&w, offset)
	return w.Bytes()
}

// I32Add encodes i32.add.
func I32Add() []byte { return []byte{0x6a} }

// Drop encodes drop.
func Drop() []byte { return []byte{0x1a} }

// Unreachable encodes unreachable.
func Unreachable() []byte { return []byte{0x00} }

// Forever encodes an empty infinite loop: loop br 0 end.
func Forever() []byte { return []byte{0x03, 0x40, 0x0c, 0x00, 0x0b} }
