package action

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"
)

// Address is the content address of an Entry.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("%016x", uint64(a))
}

// ParseAddress parses the hexadecimal form produced by String.
func ParseAddress(s string) (Address, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse address %q: %w", s, err)
	}
	return Address(v), nil
}

// Entry is a content-addressed unit of guest data.
type Entry struct {
	Type    string `msgpack:"type"`
	Content string `msgpack:"content"`
}

func (e *Entry) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, e)
}

func (e *Entry) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, e)
}

// Encode returns the canonical msgpack encoding.
func (e Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	return buf.Bytes(), nil
}

// Address hashes the canonical encoding.
func (e Entry) Address() (Address, error) {
	data, err := e.Encode()
	if err != nil {
		return 0, err
	}
	return Address(farm.Hash64(data)), nil
}

// DecodeEntry is the inverse of Encode.
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := e.Deserialize(bytes.NewReader(data)); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}
