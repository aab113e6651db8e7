package wasm

import (
	"errors"
	"io"
)

// ErrOverflow is returned when a LEB128 value exceeds the maximum bit width.
var ErrOverflow = errors.New("leb128: overflow")

// reader is a bounds-checked cursor over a byte slice.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readCount reads a vector length and checks that count entries of at least
// minSize bytes each fit in what is left.
func (r *reader) readCount(minSize int) (uint32, error) {
	count, err := r.readU32()
	if err != nil {
		return 0, err
	}
	if uint64(count)*uint64(minSize) > uint64(r.remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return count, nil
}

// readU32 reads an unsigned LEB128 value
func (r *reader) readU32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, ErrOverflow
		}
	}
}

func (r *reader) readName() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// skipLimits skips a limits encoding (flags, min, optional max).
func (r *reader) skipLimits() error {
	flags, err := r.readByte()
	if err != nil {
		return err
	}
	if _, err := r.readU32(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		if _, err := r.readU32(); err != nil {
			return err
		}
	}
	return nil
}
