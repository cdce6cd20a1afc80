package codec

import (
	"encoding"
	"fmt"
)

// Raw stores strings and byte slices verbatim.
//
// Types implementing encoding.BinaryMarshaler / BinaryUnmarshaler are
// delegated to. Anything else is an error.
type Raw struct{}

// Marshal returns the bytes of v.
func (Raw) Marshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out, nil
	case string:
		return []byte(t), nil
	case *[]byte:
		return Raw{}.Marshal(*t)
	case *string:
		return []byte(*t), nil
	case encoding.BinaryMarshaler:
		return t.MarshalBinary()
	default:
		return nil, fmt.Errorf("raw codec: unsupported type %T", v)
	}
}

// Unmarshal stores data into v, which must be *[]byte, *string, or an
// encoding.BinaryUnmarshaler.
func (Raw) Unmarshal(data []byte, v any) error {
	switch t := v.(type) {
	case *[]byte:
		out := make([]byte, len(data))
		copy(out, data)
		*t = out
		return nil
	case *string:
		*t = string(data)
		return nil
	case encoding.BinaryUnmarshaler:
		return t.UnmarshalBinary(data)
	default:
		return fmt.Errorf("raw codec: unsupported type %T", v)
	}
}

// Name returns "raw".
func (Raw) Name() string { return "raw" }
