package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID    uint64
	Item  string
	Qty   int
	Tags  []string
	Attrs map[string]string
}

func allCodecs() []Codec {
	return []Codec{
		JSON{},
		Gob{},
		Zstd(JSON{}),
		Zstd(Gob{}),
		LZ4(JSON{}),
		LZ4(Gob{}),
	}
}

func TestCodec_Structured(t *testing.T) {
	want := order{
		ID:    123456789,
		Item:  "widget",
		Qty:   3,
		Tags:  []string{"a", "b"},
		Attrs: map[string]string{"owner": "ops"},
	}
	for _, c := range allCodecs() {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(want)
			require.NoError(t, err)

			var got order
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestCodec_StringsAndBytes(t *testing.T) {
	codecs := append(allCodecs(), Raw{}, Zstd(Raw{}), LZ4(Raw{}))
	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal("Hello World!")
			require.NoError(t, err)
			var s string
			require.NoError(t, c.Unmarshal(data, &s))
			assert.Equal(t, "Hello World!", s)

			payload := []byte{0, 1, 2, 0xfe, 0xff}
			data, err = c.Marshal(payload)
			require.NoError(t, err)
			var b []byte
			require.NoError(t, c.Unmarshal(data, &b))
			assert.Equal(t, payload, b)
		})
	}
}

func TestCompression_Shrinks(t *testing.T) {
	big := strings.Repeat("journal entry ", 1000)
	plain := MustMarshal(Raw{}, big)

	for _, c := range []Codec{Zstd(Raw{}), LZ4(Raw{})} {
		data := MustMarshal(c, big)
		assert.Less(t, len(data), len(plain)/4, c.Name())

		var got string
		require.NoError(t, c.Unmarshal(data, &got))
		assert.Equal(t, big, got)
	}
}

func TestLZ4_Incompressible(t *testing.T) {
	c := LZ4(Raw{})
	data := MustMarshal(c, []byte{7})
	assert.Equal(t, byte(lz4Raw), data[0])

	var got []byte
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, []byte{7}, got)

	assert.Error(t, c.Unmarshal([]byte{1, 2}, &got))
	assert.Error(t, c.Unmarshal([]byte{9, 0, 0, 0, 0}, &got))
}

func TestRaw_Unsupported(t *testing.T) {
	_, err := Raw{}.Marshal(42)
	assert.Error(t, err)

	var n int
	assert.Error(t, Raw{}.Unmarshal([]byte("x"), &n))
}

func TestRaw_CopiesInput(t *testing.T) {
	in := []byte("abc")
	out, err := Raw{}.Marshal(in)
	require.NoError(t, err)
	in[0] = 'z'
	assert.Equal(t, "abc", string(out))
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "gob", "raw", "zstd+json", "lz4+gob", "zstd+raw"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	for _, name := range []string{"", "msgpack", "brotli+json", "zstd+nope"} {
		_, ok := ByName(name)
		assert.False(t, ok, name)
	}
}

func TestMustMarshal_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(Raw{}, struct{}{}) })
	assert.True(t, bytes.Equal(MustMarshal(nil, "x"), MustMarshal(Gob{}, "x")))
}
