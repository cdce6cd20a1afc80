package txjournal

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/txjournal/codec"
)

// Config is the file form of the journal options.
//
//	dir: /var/lib/queue/journal
//	codec: zstd+json
//	rotation_threshold: 500KiB
//	durability: sync
//	complete_on_marker: true
//	log:
//	  level: info
//	  format: json
type Config struct {
	Dir                  string    `yaml:"dir"`
	Codec                string    `yaml:"codec,omitempty"`
	RotationThreshold    string    `yaml:"rotation_threshold,omitempty"`
	Durability           string    `yaml:"durability,omitempty"`
	RecoveryConcurrency  int       `yaml:"recovery_concurrency,omitempty"`
	CompleteOnMarker     bool      `yaml:"complete_on_marker,omitempty"`
	PinnedSegmentWarning *uint64   `yaml:"pinned_segment_warning,omitempty"`
	Log                  LogConfig `yaml:"log,omitempty"`
}

// LogConfig selects the logger built by Config.Options.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // text, json or none
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config bytes. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("parse config: dir is required")
	}
	return &cfg, nil
}

// Options translates the config into Open options.
func (c *Config) Options() ([]Option, error) {
	var opts []Option

	if c.Codec != "" {
		cd, ok := codec.ByName(c.Codec)
		if !ok {
			return nil, fmt.Errorf("unknown codec %q", c.Codec)
		}
		opts = append(opts, WithCodec(cd))
	}

	if c.RotationThreshold != "" {
		n, err := humanize.ParseBytes(c.RotationThreshold)
		if err != nil {
			return nil, fmt.Errorf("rotation_threshold: %w", err)
		}
		opts = append(opts, WithRotationThreshold(int64(n))) //nolint:gosec // bounded by ParseBytes
	}

	switch strings.ToLower(c.Durability) {
	case "", "sync":
		opts = append(opts, WithDurability(DurabilitySync))
	case "async":
		opts = append(opts, WithDurability(DurabilityAsync))
	default:
		return nil, fmt.Errorf("unknown durability %q", c.Durability)
	}

	if c.RecoveryConcurrency > 0 {
		opts = append(opts, WithRecoveryConcurrency(c.RecoveryConcurrency))
	}
	if c.CompleteOnMarker {
		opts = append(opts, WithMarkerCompletion())
	}
	if c.PinnedSegmentWarning != nil {
		opts = append(opts, WithPinnedSegmentWarning(*c.PinnedSegmentWarning))
	}

	logger, err := c.Log.logger()
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithLogger(logger))
	return opts, nil
}

func (lc LogConfig) logger() (*Logger, error) {
	level := slog.LevelInfo
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
	}
	switch strings.ToLower(lc.Format) {
	case "", "text":
		return NewTextLogger(level), nil
	case "json":
		return NewJSONLogger(level), nil
	case "none":
		return NoopLogger(), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", lc.Format)
	}
}
