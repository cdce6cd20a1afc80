package codec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

type zstdCodec struct {
	inner Codec
}

// Zstd wraps inner and compresses its output with zstd.
func Zstd(inner Codec) Codec {
	if inner == nil {
		inner = Default
	}
	return zstdCodec{inner: inner}
}

func (z zstdCodec) Marshal(v any) ([]byte, error) {
	plain, err := z.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(plain, nil), nil
}

func (z zstdCodec) Unmarshal(data []byte, v any) error {
	dec, err := getZstdDecoder()
	if err != nil {
		return fmt.Errorf("zstd decoder: %w", err)
	}
	defer zstdDecoderPool.Put(dec)
	plain, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	return z.inner.Unmarshal(plain, v)
}

func (z zstdCodec) Name() string { return "zstd+" + z.inner.Name() }

type lz4Codec struct {
	inner Codec
}

// LZ4 wraps inner and compresses its output with LZ4 blocks.
//
// Format: [Kind: 1][UncompressedSize: 4][Block]. Input that does not shrink is
// stored raw with Kind 0.
func LZ4(inner Codec) Codec {
	if inner == nil {
		inner = Default
	}
	return lz4Codec{inner: inner}
}

const (
	lz4Raw        = 0
	lz4Compressed = 1
)

func (l lz4Codec) Marshal(v any) ([]byte, error) {
	plain, err := l.inner.Marshal(v)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 5+lz4.CompressBlockBound(len(plain)))
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(plain))) //nolint:gosec // bounded by record size

	n, err := lz4.CompressBlock(plain, out[5:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 || n >= len(plain) {
		out[0] = lz4Raw
		return append(out[:5], plain...), nil
	}
	out[0] = lz4Compressed
	return out[:5+n], nil
}

func (l lz4Codec) Unmarshal(data []byte, v any) error {
	if len(data) < 5 {
		return fmt.Errorf("lz4: short block header (%d bytes)", len(data))
	}
	size := int(binary.LittleEndian.Uint32(data[1:5]))
	body := data[5:]

	switch data[0] {
	case lz4Raw:
		if len(body) != size {
			return fmt.Errorf("lz4: raw block size %d, header says %d", len(body), size)
		}
		return l.inner.Unmarshal(body, v)
	case lz4Compressed:
		plain := make([]byte, size)
		n, err := lz4.UncompressBlock(body, plain)
		if err != nil {
			return fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != size {
			return fmt.Errorf("lz4: decompressed %d bytes, header says %d", n, size)
		}
		return l.inner.Unmarshal(plain, v)
	default:
		return fmt.Errorf("lz4: unknown block kind %d", data[0])
	}
}

func (l lz4Codec) Name() string { return "lz4+" + l.inner.Name() }
