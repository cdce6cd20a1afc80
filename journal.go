package txjournal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/txjournal/codec"
	"github.com/hupe1980/txjournal/internal/index"
	"github.com/hupe1980/txjournal/internal/record"
	"github.com/hupe1980/txjournal/internal/segment"
)

// LockFile is the name of the ownership lock inside a journal directory.
const LockFile = "LOCK"

// Journal is a durable, append-only log of transactional queue operations,
// indexed in memory by transaction id.
//
// A Journal is safe for concurrent use. Appends are serialized; the order in
// which LogOperation calls return is the order of the records on disk and of
// the entries returned by GetLogEntries.
type Journal[V any] struct {
	mu    sync.RWMutex
	state atomic.Int32

	dir     string
	log     *segment.Log
	idx     *index.Index[Entry[V]]
	lock    io.Closer
	codec   codec.Codec
	logger  *Logger
	metrics MetricsCollector

	skip     func(Entry[V]) bool
	complete func(Entry[V]) bool

	// failure is set by the first failed append and returned by every
	// later mutation.
	failure error

	buf            []byte
	pinnedSegments uint64
	pinned         rate.Sometimes
	opened         time.Time
	recovery       RecoveryStats
}

// Open opens the journal in dir, creating it if needed, and replays the log.
// When Open returns the journal is READY and every surviving entry is
// available through GetLogEntries.
//
// A directory can be owned by one journal at a time; a second Open returns
// ErrLocked.
func Open[V any](dir string, optFns ...Option) (*Journal[V], error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	skip, complete, err := predicates[V](&o)
	if err != nil {
		return nil, err
	}

	if err := o.fsys.MkdirAll(dir, 0750); err != nil {
		return nil, &IOFailure{Op: "mkdir", Path: dir, cause: err}
	}
	lock, err := o.fsys.Lock(filepath.Join(dir, LockFile))
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return nil, fmt.Errorf("open journal %s: %w", dir, err)
		}
		return nil, &IOFailure{Op: "lock", Path: dir, cause: err}
	}

	j := &Journal[V]{
		dir:            dir,
		idx:            index.New[Entry[V]](),
		lock:           lock,
		codec:          codecFor[V](&o),
		logger:         o.logger.WithDir(dir),
		metrics:        o.metricsCollector,
		skip:           skip,
		complete:       complete,
		pinnedSegments: o.pinnedSegments,
		pinned:         rate.Sometimes{First: 1, Interval: time.Minute},
	}
	j.state.Store(int32(StateNew))

	log, err := segment.Open(segment.Options{
		Dir:               dir,
		RotationThreshold: o.rotationThreshold,
		Durability:        o.durability,
		FS:                o.fsys,
	})
	if err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("open journal %s: %w", dir, err)
	}
	j.log = log

	if err := j.recover(context.Background(), o.recoveryConcurrency); err != nil {
		_ = log.Close()
		_ = lock.Close()
		return nil, err
	}
	j.opened = time.Now()
	return j, nil
}

// Dir returns the journal directory.
func (j *Journal[V]) Dir() string { return j.dir }

// State returns the lifecycle state.
func (j *Journal[V]) State() State { return State(j.state.Load()) }

func (j *Journal[V]) writable() error {
	if j.State() != StateReady {
		return ErrIllegalState
	}
	return j.failure
}

// LogOperation durably appends e and makes it visible to GetLogEntries.
//
// A value the codec cannot encode yields a SerializationError and nothing is
// written. A failed write yields an IOFailure; the journal then rejects
// further mutations until it is closed and reopened.
func (j *Journal[V]) LogOperation(e Entry[V]) error {
	if !e.Op.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOperation, uint8(e.Op))
	}
	if e.Op.Marker() {
		var zero V
		e.Value = zero
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writable(); err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	buf, err := j.encode(e)
	if err != nil {
		j.metrics.RecordAppend(e.Op, 0, time.Since(start), err)
		return err
	}

	headBefore := j.log.Head().Seq()
	pos, _, err := j.log.Append(buf)
	if head := j.log.Head(); head.Seq() != headBefore {
		j.metrics.RecordRotation()
		j.logger.LogRotated(ctx, head.Seq())
	}
	if err != nil {
		failure := &IOFailure{Op: "append", Path: j.log.Head().Path(), cause: err}
		j.failure = failure
		j.metrics.RecordAppend(e.Op, len(buf), time.Since(start), failure)
		j.logger.LogAppend(ctx, e.TxID, e.Op, len(buf), failure)
		return failure
	}

	j.idx.Add(e.TxID, pos, e)
	j.buf = buf[:0]

	j.metrics.RecordAppend(e.Op, len(buf), time.Since(start), nil)
	j.logger.LogAppend(ctx, e.TxID, e.Op, len(buf), nil)
	return nil
}

// LogAdd logs an OpAdd of v to queue.
func (j *Journal[V]) LogAdd(tx int64, queue string, v V) error {
	return j.LogOperation(Entry[V]{TxID: tx, Op: OpAdd, Queue: queue, Value: v})
}

// LogAddFirst logs an OpAddFirst of v to queue.
func (j *Journal[V]) LogAddFirst(tx int64, queue string, v V) error {
	return j.LogOperation(Entry[V]{TxID: tx, Op: OpAddFirst, Queue: queue, Value: v})
}

// LogRemove logs an OpRemove of v from queue.
func (j *Journal[V]) LogRemove(tx int64, queue string, v V) error {
	return j.LogOperation(Entry[V]{TxID: tx, Op: OpRemove, Queue: queue, Value: v})
}

// LogCommit logs a commit marker for tx.
func (j *Journal[V]) LogCommit(tx int64) error {
	return j.LogOperation(Entry[V]{TxID: tx, Op: OpCommit})
}

// LogRollback logs a rollback marker for tx.
func (j *Journal[V]) LogRollback(tx int64) error {
	return j.LogOperation(Entry[V]{TxID: tx, Op: OpRollback})
}

// GetLogEntries returns tx's entries in append order. The slice is a copy;
// an unknown tx yields an empty slice.
func (j *Journal[V]) GetLogEntries(tx int64) ([]Entry[V], error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.State() != StateReady {
		return nil, ErrIllegalState
	}
	return j.idx.Get(tx), nil
}

// TransactionIDs returns the ids of every transaction with entries, in
// ascending order.
func (j *Journal[V]) TransactionIDs() ([]int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.State() != StateReady {
		return nil, ErrIllegalState
	}
	return j.idx.TxIDs(), nil
}

// Remove forgets tx. Its records stay on disk until every other record in
// their segments is removed too, at which point the segment file is
// deleted. Removing an unknown tx is a no-op.
func (j *Journal[V]) Remove(tx int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writable(); err != nil {
		return err
	}

	n := j.idx.Remove(tx)
	if n == 0 {
		return nil
	}
	j.metrics.RecordRemove(n)
	j.reclaim(context.Background())
	j.warnPinned(context.Background())
	return nil
}

// reclaim releases the oldest sealed segments once nothing in them can be
// replayed. Release stops at the first failure so the survivors stay a
// suffix of the log; the rest is retried at the next open.
func (j *Journal[V]) reclaim(ctx context.Context) int {
	head := j.log.Head()
	if head == nil {
		return 0
	}
	segs := j.log.Segments()
	seqs := make([]uint64, len(segs))
	for i, s := range segs {
		seqs[i] = s.Seq()
	}
	released := 0
	for _, seq := range j.idx.Reclaimable(seqs, head.Seq()) {
		err := j.log.Release(seq)
		j.logger.LogReleased(ctx, seq, err)
		if err != nil {
			break
		}
		j.idx.Forget(seq)
		j.metrics.RecordRelease(seq)
		released++
	}
	return released
}

func (j *Journal[V]) warnPinned(ctx context.Context) {
	if j.pinnedSegments == 0 {
		return
	}
	oldest, ok := j.idx.Oldest()
	if !ok {
		return
	}
	head := j.log.Head().Seq()
	if head-oldest < j.pinnedSegments {
		return
	}
	j.pinned.Do(func() {
		j.logger.LogPinned(ctx, oldest, head)
	})
}

// Stats returns a snapshot of the journal. It is valid in every state.
func (j *Journal[V]) Stats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Stats{
		Dir:          j.dir,
		JournalID:    j.log.ID().String(),
		State:        j.State(),
		Failed:       j.failure != nil,
		Segments:     len(j.log.Segments()),
		CurrentSize:  j.log.CurrentSize(),
		TotalSize:    j.log.TotalSize(),
		Transactions: j.idx.Transactions(),
		Entries:      j.idx.Len(),
		Recovery:     j.recovery,
	}
	if h := j.log.Head(); h != nil {
		s.HeadSegment = h.Seq()
	}
	return s
}

// Close flushes and closes the log and releases the directory lock.
// Every later call, Close included, returns ErrIllegalState.
func (j *Journal[V]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.State() != StateReady {
		return ErrIllegalState
	}
	j.state.Store(int32(StateClosed))

	var errs []error
	if j.failure == nil {
		if err := j.log.Sync(); err != nil {
			errs = append(errs, &IOFailure{Op: "sync", Path: j.dir, cause: err})
		}
	}
	if err := j.log.Close(); err != nil {
		errs = append(errs, &IOFailure{Op: "close", Path: j.dir, cause: err})
	}
	if err := j.lock.Close(); err != nil {
		errs = append(errs, &IOFailure{Op: "unlock", Path: j.dir, cause: err})
	}
	err := errors.Join(errs...)
	j.logger.LogClosed(context.Background(), time.Since(j.opened), err)
	return err
}

func (j *Journal[V]) encode(e Entry[V]) ([]byte, error) {
	var value []byte
	if !e.Op.Marker() {
		b, err := j.codec.Marshal(e.Value)
		if err != nil {
			return nil, &SerializationError{Codec: j.codec.Name(), TxID: e.TxID, cause: err}
		}
		value = b
	}
	rec := record.Record{TxID: e.TxID, Op: uint8(e.Op), Queue: []byte(e.Queue), Value: value}
	buf, err := rec.Encode(j.buf[:0])
	if err != nil {
		return nil, &SerializationError{Codec: j.codec.Name(), TxID: e.TxID, cause: err}
	}
	return buf, nil
}

func (j *Journal[V]) decode(rec *record.Record) (Entry[V], error) {
	e := Entry[V]{TxID: rec.TxID, Op: Operation(rec.Op), Queue: string(rec.Queue)}
	if !e.Op.Valid() {
		return e, fmt.Errorf("%w: %d", ErrInvalidOperation, rec.Op)
	}
	if !e.Op.Marker() {
		if err := j.codec.Unmarshal(rec.Value, &e.Value); err != nil {
			return e, fmt.Errorf("decode value with %s codec: %w", j.codec.Name(), err)
		}
	}
	return e, nil
}
