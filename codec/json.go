package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// JSON is portable and readable in dumps. []byte values travel as base64
// strings and numbers decoded into interface values become float64.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }
