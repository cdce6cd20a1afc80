package txjournal

import (
	"fmt"
	"runtime"

	"github.com/spf13/afero"

	"github.com/hupe1980/txjournal/codec"
	"github.com/hupe1980/txjournal/internal/fs"
	"github.com/hupe1980/txjournal/internal/segment"
)

// Durability selects when appended records reach stable storage.
type Durability = segment.Durability

const (
	// DurabilitySync fsyncs every append before LogOperation returns.
	DurabilitySync = segment.DurabilitySync
	// DurabilityAsync leaves flushing to the operating system. A crash may
	// lose the most recent appends but never corrupts earlier ones.
	DurabilityAsync = segment.DurabilityAsync
)

// DefaultRotationThreshold is the head segment size that triggers rotation.
const DefaultRotationThreshold = segment.DefaultRotationThreshold

type options struct {
	codec               codec.Codec
	codecSet            bool
	rotationThreshold   int64
	durability          Durability
	logger              *Logger
	metricsCollector    MetricsCollector
	fsys                fs.FileSystem
	recoveryConcurrency int
	skip                any // func(Entry[V]) bool
	complete            any // func(Entry[V]) bool
	completeOnMarker    bool
	pinnedSegments      uint64
}

func defaultOptions() options {
	return options{
		codec:               codec.Default,
		rotationThreshold:   DefaultRotationThreshold,
		durability:          DurabilitySync,
		logger:              NoopLogger(),
		metricsCollector:    NoopMetricsCollector{},
		fsys:                fs.Default,
		recoveryConcurrency: runtime.GOMAXPROCS(0),
		pinnedSegments:      16,
	}
}

// Option configures Open.
type Option func(*options)

// WithCodec configures the codec that encodes entry values.
//
// The codec is not recorded in the log; reopening a journal with a
// different codec makes its values unreadable. Without this option a
// Journal[[]byte] uses codec.Raw, so empty and nil slices come back as
// empty non-nil slices, and every other value type uses codec.Default. If
// nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
		o.codecSet = true
	}
}

// codecFor returns the codec for values of type V.
func codecFor[V any](o *options) codec.Codec {
	if !o.codecSet {
		if _, ok := any(*new(V)).([]byte); ok {
			return codec.Raw{}
		}
	}
	return o.codec
}

// WithRotationThreshold sets the head segment size in bytes past which the
// next append starts a new segment. Values <= 0 select the default.
func WithRotationThreshold(n int64) Option {
	return func(o *options) {
		if n <= 0 {
			n = DefaultRotationThreshold
		}
		o.rotationThreshold = n
	}
}

// WithDurability selects the fsync policy.
func WithDurability(d Durability) Option {
	return func(o *options) {
		o.durability = d
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFileSystem stores the journal on an afero filesystem instead of the
// local disk, for example afero.NewMemMapFs() in tests.
func WithFileSystem(fsys afero.Fs) Option {
	return func(o *options) {
		o.fsys = fs.NewAferoFS(fsys)
	}
}

func withFS(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithRecoveryConcurrency bounds how many segments Open decodes in parallel.
func WithRecoveryConcurrency(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.recoveryConcurrency = n
	}
}

// WithSkipPredicate excludes recovered entries for which fn returns true.
// V must match the journal's value type.
func WithSkipPredicate[V any](fn func(Entry[V]) bool) Option {
	return func(o *options) {
		o.skip = fn
	}
}

// WithCompletionPredicate drops a transaction during recovery once fn
// returns true for one of its entries. The completing entry and everything
// replayed for that transaction before it are discarded.
// V must match the journal's value type.
func WithCompletionPredicate[V any](fn func(Entry[V]) bool) Option {
	return func(o *options) {
		o.complete = fn
	}
}

// WithMarkerCompletion is WithCompletionPredicate(CompletedByMarker) for
// callers that do not want to spell out the value type.
func WithMarkerCompletion() Option {
	return func(o *options) {
		o.completeOnMarker = true
	}
}

// WithPinnedSegmentWarning sets how many segments the oldest live entry may
// trail the head before a warning is logged. Zero disables the warning.
func WithPinnedSegmentWarning(n uint64) Option {
	return func(o *options) {
		o.pinnedSegments = n
	}
}

func predicates[V any](o *options) (skip, complete func(Entry[V]) bool, err error) {
	skip, complete = NeverSkip[V], NeverComplete[V]
	if o.skip != nil {
		fn, ok := o.skip.(func(Entry[V]) bool)
		if !ok {
			return nil, nil, fmt.Errorf("skip predicate %T does not match journal value type", o.skip)
		}
		skip = fn
	}
	if o.completeOnMarker {
		complete = CompletedByMarker[V]
	}
	if o.complete != nil {
		fn, ok := o.complete.(func(Entry[V]) bool)
		if !ok {
			return nil, nil, fmt.Errorf("completion predicate %T does not match journal value type", o.complete)
		}
		complete = fn
	}
	return skip, complete, nil
}
