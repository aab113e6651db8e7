package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ribosome"
)

// Memory wraps wazero memory to implement ribosome.Memory
type Memory struct {
	mem api.Memory
}

// NewMemory wraps a guest memory handed to a host function.
func NewMemory(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	val, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

// ReadBlob reads a length-prefixed byte string: a u32 little-endian length
// followed by that many bytes. Lengths above max are rejected.
// The returned slice is a copy.
func (m *Memory) ReadBlob(offset uint32, max uint32) ([]byte, error) {
	n, err := m.ReadU32(offset)
	if err != nil {
		return nil, err
	}
	if n > max {
		return nil, fmt.Errorf("blob at %d is %d bytes, limit is %d", offset, n, max)
	}
	if offset > ^uint32(0)-4 {
		return nil, fmt.Errorf("blob at %d overflows address space", offset)
	}
	data, err := m.Read(offset+4, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Compile-time check that Memory implements ribosome.Memory and MemorySizer
var _ ribosome.Memory = (*Memory)(nil)
var _ ribosome.MemorySizer = (*Memory)(nil)
