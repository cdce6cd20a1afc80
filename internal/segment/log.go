// Package segment implements the journal's append-only log as a directory of
// size-bounded segment files.
//
// Records are appended to the head segment. Once the head grows past the
// rotation threshold the next append opens a new segment; earlier segments
// stay readable until the journal releases them. Nothing is ever rewritten in
// place.
package segment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/txjournal/internal/fs"
	"github.com/hupe1980/txjournal/internal/record"
)

// DefaultRotationThreshold is the head segment size that triggers rotation.
const DefaultRotationThreshold = 500 * 1024

// ErrHeadSegment is returned when releasing the segment that receives appends.
var ErrHeadSegment = errors.New("cannot release head segment")

// Position locates a record in the log.
type Position struct {
	Segment uint64
	Offset  int64
}

func (p Position) String() string {
	return fmt.Sprintf("%d@%d", p.Segment, p.Offset)
}

// Options configures a Log.
type Options struct {
	Dir               string
	RotationThreshold int64
	Durability        Durability
	FS                fs.FileSystem

	// ReadOnly opens existing segments without creating one. Appends fail.
	ReadOnly bool
}

// Log is an ordered set of segment files. The last one is the head.
//
// Log is not safe for concurrent use; the journal serializes access.
type Log struct {
	fsys       fs.FileSystem
	dir        string
	threshold  int64
	durability Durability
	readOnly   bool

	id       uuid.UUID
	segments []*File
}

// ErrReadOnly is returned by mutating calls on a read-only Log.
var ErrReadOnly = errors.New("log opened read-only")

// Open opens the segments in opts.Dir, creating the directory and a first
// segment if there are none.
func Open(opts Options) (*Log, error) {
	if opts.FS == nil {
		opts.FS = fs.Default
	}
	if opts.RotationThreshold <= 0 {
		opts.RotationThreshold = DefaultRotationThreshold
	}
	if !opts.ReadOnly {
		if err := opts.FS.MkdirAll(opts.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	l := &Log{
		fsys:       opts.FS,
		dir:        opts.Dir,
		threshold:  opts.RotationThreshold,
		durability: opts.Durability,
		readOnly:   opts.ReadOnly,
	}

	seqs, err := l.list()
	if err != nil {
		return nil, err
	}
	for i, seq := range seqs {
		path := filepath.Join(l.dir, Filename(seq))
		f, err := openFile(l.fsys, path, seq)
		if err != nil && i == len(seqs)-1 && !l.readOnly && errors.Is(err, errShortHeader) {
			// A crash while creating the head can leave a short header.
			f, err = l.recreate(path, seq)
		}
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		if len(l.segments) == 0 {
			l.id = f.JournalID()
		} else if f.JournalID() != l.id {
			_ = f.Close()
			_ = l.Close()
			return nil, fmt.Errorf("%w: %s has id %s, expected %s", ErrForeign, path, f.JournalID(), l.id)
		}
		l.segments = append(l.segments, f)
	}

	if len(l.segments) == 0 && !l.readOnly {
		l.id = uuid.New()
		if err := l.Rotate(); err != nil {
			return nil, fmt.Errorf("create first segment: %w", err)
		}
	}
	return l, nil
}

func (l *Log) list() ([]uint64, error) {
	entries, err := l.fsys.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read journal directory: %w", err)
	}
	var seqs []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if seq, ok := ParseFilename(e.Name()); ok {
			seqs = append(seqs, seq)
		}
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}

func (l *Log) recreate(path string, seq uint64) (*File, error) {
	if err := l.fsys.Remove(path); err != nil {
		return nil, err
	}
	id := l.id
	if len(l.segments) == 0 {
		id = uuid.New()
	}
	return createFile(l.fsys, path, seq, id)
}

// ID returns the journal identity shared by all segments.
func (l *Log) ID() uuid.UUID { return l.id }

// Dir returns the log directory.
func (l *Log) Dir() string { return l.dir }

// Head returns the segment receiving appends, or nil for an empty read-only log.
func (l *Log) Head() *File {
	if len(l.segments) == 0 {
		return nil
	}
	return l.segments[len(l.segments)-1]
}

// Segments returns the open segments in order.
func (l *Log) Segments() []*File {
	out := make([]*File, len(l.segments))
	copy(out, l.segments)
	return out
}

// CurrentSize returns the size of the head segment.
func (l *Log) CurrentSize() int64 {
	if h := l.Head(); h != nil {
		return h.Size()
	}
	return 0
}

// TotalSize returns the size of all segments.
func (l *Log) TotalSize() int64 {
	var n int64
	for _, s := range l.segments {
		n += s.Size()
	}
	return n
}

// NeedsRotation reports whether the head has outgrown the threshold.
func (l *Log) NeedsRotation() bool {
	h := l.Head()
	return h != nil && !h.Empty() && h.Size() > l.threshold
}

// Append writes one framed record. If the head has already outgrown the
// threshold, a new segment is opened first, so the record never straddles
// segments. The second return value reports whether that rotation happened.
func (l *Log) Append(b []byte) (Position, bool, error) {
	if l.readOnly {
		return Position{}, false, ErrReadOnly
	}
	rotated := false
	if l.NeedsRotation() {
		if err := l.Rotate(); err != nil {
			return Position{}, false, fmt.Errorf("rotate: %w", err)
		}
		rotated = true
	}
	head := l.Head()
	off, err := head.Append(b, l.durability)
	if err != nil {
		return Position{}, rotated, fmt.Errorf("append to segment %d: %w", head.Seq(), err)
	}
	return Position{Segment: head.Seq(), Offset: off}, rotated, nil
}

// Read returns the record at pos.
func (l *Log) Read(pos Position) (*record.Record, error) {
	s := l.find(pos.Segment)
	if s == nil {
		return nil, fmt.Errorf("segment %d not found", pos.Segment)
	}
	return s.ReadAt(pos.Offset)
}

func (l *Log) find(seq uint64) *File {
	i := sort.Search(len(l.segments), func(i int) bool { return l.segments[i].Seq() >= seq })
	if i < len(l.segments) && l.segments[i].Seq() == seq {
		return l.segments[i]
	}
	return nil
}

// Rotate seals the head and starts a new segment.
func (l *Log) Rotate() error {
	if l.readOnly {
		return ErrReadOnly
	}
	var seq uint64 = 1
	if h := l.Head(); h != nil {
		if err := h.Sync(); err != nil {
			return fmt.Errorf("sync segment %d: %w", h.Seq(), err)
		}
		seq = h.Seq() + 1
	}
	f, err := createFile(l.fsys, filepath.Join(l.dir, Filename(seq)), seq, l.id)
	if err != nil {
		return err
	}
	l.segments = append(l.segments, f)
	return nil
}

// Release closes and deletes a sealed segment.
func (l *Log) Release(seq uint64) error {
	if l.readOnly {
		return ErrReadOnly
	}
	if h := l.Head(); h != nil && h.Seq() == seq {
		return ErrHeadSegment
	}
	for i, s := range l.segments {
		if s.Seq() != seq {
			continue
		}
		if err := s.Close(); err != nil {
			return err
		}
		if err := l.fsys.Remove(s.Path()); err != nil {
			return err
		}
		l.segments = append(l.segments[:i], l.segments[i+1:]...)
		return nil
	}
	return fmt.Errorf("segment %d not found", seq)
}

// Sync flushes the head segment.
func (l *Log) Sync() error {
	if h := l.Head(); h != nil {
		return h.Sync()
	}
	return nil
}

// Close closes every segment.
func (l *Log) Close() error {
	var errs []error
	for _, s := range l.segments {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close segment %d: %w", s.Seq(), err))
		}
	}
	l.segments = nil
	return errors.Join(errs...)
}

// Positioned is a decoded record with its location.
type Positioned struct {
	Pos    Position
	Record *record.Record
}

// SegmentScan is the result of scanning one segment.
type SegmentScan struct {
	Seq     uint64
	Records []Positioned
	// End is the offset just past the last good record.
	End int64
	// Cause is set when the scan stopped at a corrupt record at End.
	Cause error
}

// ScanAll decodes every segment, up to concurrency segments at a time, and
// returns the results in segment order.
func (l *Log) ScanAll(ctx context.Context, concurrency int) ([]SegmentScan, error) {
	out := make([]SegmentScan, len(l.segments))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, s := range l.segments {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := SegmentScan{Seq: s.Seq()}
			end, cause, err := s.Scan(func(offset int64, rec *record.Record) error {
				res.Records = append(res.Records, Positioned{Pos: Position{Segment: s.Seq(), Offset: offset}, Record: rec})
				return nil
			})
			if err != nil {
				return fmt.Errorf("scan segment %d: %w", s.Seq(), err)
			}
			res.End, res.Cause = end, cause
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Repair cuts the log at pos: the segment is truncated to pos.Offset and every
// later segment is renamed with a ".corrupt" suffix and dropped. The repaired
// segment becomes the head. It returns the quarantined file paths.
func (l *Log) Repair(pos Position) ([]string, error) {
	if l.readOnly {
		return nil, ErrReadOnly
	}
	idx := -1
	for i, s := range l.segments {
		if s.Seq() == pos.Segment {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("segment %d not found", pos.Segment)
	}

	var quarantined []string
	for _, s := range l.segments[idx+1:] {
		if err := s.Close(); err != nil {
			return quarantined, err
		}
		dst := s.Path() + quarantineSuffix
		if err := l.fsys.Rename(s.Path(), dst); err != nil {
			return quarantined, err
		}
		quarantined = append(quarantined, dst)
	}
	l.segments = l.segments[:idx+1]

	s := l.segments[idx]
	if s.Size() > pos.Offset {
		if err := s.Truncate(pos.Offset); err != nil {
			return quarantined, fmt.Errorf("truncate segment %d: %w", s.Seq(), err)
		}
	}
	return quarantined, nil
}

// Exists reports whether dir contains at least one segment file.
func Exists(fsys fs.FileSystem, dir string) (bool, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	info, err := fsys.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", dir)
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if _, ok := ParseFilename(e.Name()); ok {
			return true, nil
		}
	}
	return false, nil
}
