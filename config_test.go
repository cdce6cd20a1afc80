package txjournal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dir: /var/lib/queue/journal
codec: zstd+json
rotation_threshold: 1MiB
durability: async
recovery_concurrency: 2
complete_on_marker: true
pinned_segment_warning: 0
log:
  level: debug
  format: json
`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/queue/journal", cfg.Dir)

	opts, err := cfg.Options()
	require.NoError(t, err)

	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	assert.Equal(t, "zstd+json", o.codec.Name())
	assert.Equal(t, int64(1<<20), o.rotationThreshold)
	assert.Equal(t, DurabilityAsync, o.durability)
	assert.Equal(t, 2, o.recoveryConcurrency)
	assert.True(t, o.completeOnMarker)
	assert.Equal(t, uint64(0), o.pinnedSegments)
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("dir: ./journal\n"))
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	assert.Equal(t, "gob", o.codec.Name())
	assert.Equal(t, int64(DefaultRotationThreshold), o.rotationThreshold)
	assert.Equal(t, DurabilitySync, o.durability)
	assert.Equal(t, uint64(16), o.pinnedSegments)
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown codec", "dir: d\ncodec: brotli\n"},
		{"bad size", "dir: d\nrotation_threshold: lots\n"},
		{"bad durability", "dir: d\ndurability: eventually\n"},
		{"bad log level", "dir: d\nlog:\n  level: loud\n"},
		{"bad log format", "dir: d\nlog:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = cfg.Options()
			assert.Error(t, err)
		})
	}

	_, err := ParseConfig([]byte("codec: json\n"))
	assert.Error(t, err, "dir is required")

	_, err = ParseConfig([]byte("dir: d\nunknown_key: 1\n"))
	assert.Error(t, err)
}
