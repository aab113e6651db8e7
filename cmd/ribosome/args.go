package main

import (
	"fmt"
	"strconv"

	"github.com/tetratelabs/wazero/api"
)

// parseArgs converts command line values to wasm stack values.
func parseArgs(types []api.ValueType, values []string) ([]uint64, error) {
	if len(values) != len(types) {
		return nil, fmt.Errorf("export takes %d argument(s), got %d", len(types), len(values))
	}
	out := make([]uint64, len(values))
	for i, v := range values {
		arg, err := parseArg(types[i], v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = arg
	}
	return out, nil
}

func parseArg(t api.ValueType, value string) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			// accept the unsigned range as well
			u, uerr := strconv.ParseUint(value, 0, 32)
			if uerr != nil {
				return 0, err
			}
			return api.EncodeU32(uint32(u)), nil
		}
		return api.EncodeI32(int32(v)), nil
	case api.ValueTypeI64:
		v, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(value, 0, 64)
			if uerr != nil {
				return 0, err
			}
			return u, nil
		}
		return api.EncodeI64(v), nil
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return 0, err
		}
		return api.EncodeF32(float32(v)), nil
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, err
		}
		return api.EncodeF64(v), nil
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
	}
}
