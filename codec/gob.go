package codec

import (
	"bytes"
	"encoding/gob"
)

// Gob encodes Go values with encoding/gob.
//
// Each value is a self-contained gob stream, so any record decodes without
// the records before it. Interface-typed values need gob.Register.
type Gob struct{}

// Marshal encodes the value as a gob stream.
func (Gob) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a gob stream into v.
func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Name returns "gob".
func (Gob) Name() string { return "gob" }
