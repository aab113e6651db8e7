package host

import (
	"context"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ribosome/action"
	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/errors"
)

func handlePrint(_ context.Context, call *Call, stack []uint64) error {
	call.Session.Print(api.DecodeI32(stack[0]))
	return nil
}

func handleCommit(ctx context.Context, call *Call, stack []uint64) error {
	if call.Memory == nil {
		return errors.MarshalFailed(errors.PhaseExecute, "commit needs guest memory", nil)
	}

	entry, err := UnmarshalCommit(call.Memory, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), call.Session.MaxEntrySize())
	if err != nil {
		return err
	}

	addr, err := call.Session.Commit(ctx, entry)
	if err != nil {
		return err
	}
	stack[0] = api.EncodeU32(EncodeAddress(addr))
	return nil
}

// UnmarshalCommit decodes the arguments of commit.
//
// This is a placeholder wire format until a richer marshaling convention
// exists: each pointer addresses a u32 little-endian length followed by that
// many bytes of UTF-8 text, at most max bytes. typePtr holds the entry type,
// contentPtr its content.
func UnmarshalCommit(mem *engine.Memory, typePtr, contentPtr, max uint32) (action.Entry, error) {
	typ, err := readText(mem, typePtr, max, "entry type")
	if err != nil {
		return action.Entry{}, err
	}
	content, err := readText(mem, contentPtr, max, "entry content")
	if err != nil {
		return action.Entry{}, err
	}
	return action.Entry{Type: typ, Content: content}, nil
}

// EncodeAddress is the placeholder identifier returned to the guest: the low
// 32 bits of the entry address.
func EncodeAddress(addr action.Address) uint32 {
	return uint32(addr)
}

func readText(mem *engine.Memory, ptr, max uint32, what string) (string, error) {
	data, err := mem.ReadBlob(ptr, max)
	if err != nil {
		return "", errors.New(errors.PhaseExecute, errors.KindMarshalFailed).
			Detail("read %s at %d", what, ptr).
			Value(ptr).
			Cause(err).
			Build()
	}
	if !utf8.Valid(data) {
		return "", errors.New(errors.PhaseExecute, errors.KindMarshalFailed).
			Detail("%s at %d is not valid UTF-8", what, ptr).
			Value(ptr).
			Build()
	}
	return string(data), nil
}
