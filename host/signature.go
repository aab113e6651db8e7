package host

import (
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// Signature is a core function type.
type Signature struct {
	Params  []api.ValueType
	Results []api.ValueType
}

// Equal reports whether both signatures have identical params and results.
func (s Signature) Equal(o Signature) bool {
	return slices.Equal(s.Params, o.Params) && slices.Equal(s.Results, o.Results)
}

// String renders the signature as "(i32, i32) -> i32".
func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	writeTypes(&b, s.Params)
	b.WriteString(") -> ")
	if len(s.Results) == 1 {
		b.WriteString(api.ValueTypeName(s.Results[0]))
		return b.String()
	}
	b.WriteByte('(')
	writeTypes(&b, s.Results)
	b.WriteByte(')')
	return b.String()
}

func writeTypes(b *strings.Builder, types []api.ValueType) {
	for i, t := range types {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(t))
	}
}
