package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkload(t *testing.T) {
	rng := NewRNG(4711)

	ops := rng.Workload(200, 8, 1.2)

	assert.Len(t, ops, 200)
	for _, op := range ops {
		assert.GreaterOrEqual(t, op.Tx, int64(1))
		assert.LessOrEqual(t, op.Tx, int64(8))
		assert.NotEmpty(t, op.Value)
		assert.LessOrEqual(t, len(op.Value), 64)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	w1 := rng.Workload(10, 4, 1.0)

	rng.Reset()
	w2 := rng.Workload(10, 4, 1.0)

	assert.Equal(t, w1, w2)
}

func TestZipfSkew(t *testing.T) {
	rng := NewRNG(42)

	counts := make([]int, 10)
	for range 5000 {
		counts[rng.Zipf(10, 1.5)]++
	}

	// The hottest bucket dominates the coldest by a wide margin.
	assert.Greater(t, counts[0], 5*counts[9])
	assert.Equal(t, 0, rng.Zipf(1, 1.5))
}

func TestFileHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0600))

	AppendBytes(t, path, []byte{0x03})
	assert.Equal(t, int64(4), FileSize(t, path))

	FlipByte(t, path, 1)
	TruncateFile(t, path, 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xFE}, data)
}
