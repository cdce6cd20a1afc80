// Package codec encodes journal payload values to bytes and back.
//
// The journal frames every record itself; a Codec only decides how the value
// of an entry becomes the opaque value bytes inside that frame. Changing the
// codec of an existing journal is a breaking change: records written with one
// codec generally do not decode with another.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Compressing wrappers are written as "<compression>+<inner>", for example
// "zstd+json" or "lz4+gob".
func ByName(name string) (Codec, bool) {
	if outer, inner, ok := strings.Cut(name, "+"); ok {
		c, ok := ByName(inner)
		if !ok {
			return nil, false
		}
		switch outer {
		case "zstd":
			return Zstd(c), true
		case "lz4":
			return LZ4(c), true
		default:
			return nil, false
		}
	}

	switch name {
	case "json":
		return JSON{}, true
	case "gob":
		return Gob{}, true
	case "raw":
		return Raw{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

// Default is the codec journals use when none is configured.
var Default Codec = Gob{}
