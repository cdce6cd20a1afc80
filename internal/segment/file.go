package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/hupe1980/txjournal/internal/fs"
	"github.com/hupe1980/txjournal/internal/record"
)

// Durability controls when appended bytes are forced to stable storage.
type Durability int

const (
	// DurabilitySync calls fsync after every append. Slow but safe.
	DurabilitySync Durability = iota
	// DurabilityAsync relies on the OS page cache. Fast but a machine crash
	// can lose acknowledged appends.
	DurabilityAsync
)

func (d Durability) String() string {
	switch d {
	case DurabilitySync:
		return "sync"
	case DurabilityAsync:
		return "async"
	default:
		return fmt.Sprintf("Durability(%d)", int(d))
	}
}

// File is one append-only segment on disk.
type File struct {
	seq    uint64
	path   string
	f      fs.File
	header Header
	size   int64
}

func createFile(fsys fs.FileSystem, path string, seq uint64, id uuid.UUID) (*File, error) {
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	h := Header{Version: headerVersion, JournalID: id}
	if _, err := f.Write(h.encode()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write segment header: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sync segment header: %w", err)
	}
	return &File{seq: seq, path: path, f: f, header: h, size: HeaderSize}, nil
}

func openFile(fsys fs.FileSystem, path string, seq uint64) (*File, error) {
	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.Size() < HeaderSize {
		_ = f.Close()
		return nil, fmt.Errorf("segment %s: %w", path, errShortHeader)
	}
	h, err := readHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("segment %s: %w", path, err)
	}
	return &File{seq: seq, path: path, f: f, header: h, size: st.Size()}, nil
}

// Seq returns the segment sequence number.
func (s *File) Seq() uint64 { return s.seq }

// Path returns the segment file path.
func (s *File) Path() string { return s.path }

// Size returns the number of bytes in the segment, header included.
func (s *File) Size() int64 { return s.size }

// JournalID returns the journal identity recorded in the header.
func (s *File) JournalID() uuid.UUID { return s.header.JournalID }

// Empty reports whether the segment holds no records.
func (s *File) Empty() bool { return s.size <= HeaderSize }

// Append writes b at the end of the segment and returns its offset.
//
// On failure the segment is cut back to its previous size so no partial
// record is left behind. If that cut fails too, both errors are returned and
// the torn tail is left for recovery to discard.
func (s *File) Append(b []byte, d Durability) (int64, error) {
	offset := s.size
	n, err := s.f.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err == nil && d == DurabilitySync {
		err = s.f.Sync()
	}
	if err != nil {
		if n > 0 {
			if terr := s.cut(offset); terr != nil {
				return 0, errors.Join(err, fmt.Errorf("undo partial write: %w", terr))
			}
		}
		return 0, err
	}
	s.size += int64(n)
	return offset, nil
}

// ReadAt reads the record starting at offset.
func (s *File) ReadAt(offset int64) (*record.Record, error) {
	if offset < HeaderSize || offset >= s.size {
		return nil, fmt.Errorf("offset %d outside segment %d [%d, %d)", offset, s.seq, HeaderSize, s.size)
	}
	var prefix [record.LengthSize]byte
	if _, err := s.f.ReadAt(prefix[:], offset); err != nil {
		return nil, err
	}
	length := int64(binary.LittleEndian.Uint32(prefix[:]))
	if offset+record.LengthSize+length > s.size {
		return nil, fmt.Errorf("%w: record at %d overruns segment", record.ErrTruncated, offset)
	}
	buf := make([]byte, record.LengthSize+length)
	if _, err := s.f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	rec, _, err := record.Decode(bytes.NewReader(buf))
	return rec, err
}

// Scan decodes records from the start of the segment until the end or the
// first corrupt record. It returns the offset just past the last good record
// and, if scanning stopped early, the corruption cause. I/O errors are
// returned as err.
func (s *File) Scan(fn func(offset int64, rec *record.Record) error) (end int64, cause error, err error) {
	rd := record.NewReader(io.NewSectionReader(s.f, HeaderSize, s.size-HeaderSize), HeaderSize)
	for {
		rec, offset, nerr := rd.Next()
		if errors.Is(nerr, io.EOF) {
			return rd.Offset(), nil, nil
		}
		if nerr != nil {
			if record.IsCorruption(nerr) {
				return rd.Offset(), nerr, nil
			}
			return rd.Offset(), nil, nerr
		}
		if err := fn(offset, rec); err != nil {
			return rd.Offset(), nil, err
		}
	}
}

// Truncate cuts the segment to size bytes.
func (s *File) Truncate(size int64) error {
	if size < HeaderSize {
		size = HeaderSize
	}
	if err := s.cut(size); err != nil {
		return err
	}
	s.size = size
	return s.f.Sync()
}

// cut truncates the file and moves the write position with it. O_APPEND
// handles on some filesystems (afero's in-memory one) keep writing at the old
// position otherwise.
func (s *File) cut(size int64) error {
	if err := s.f.Truncate(size); err != nil {
		return err
	}
	_, err := s.f.Seek(size, io.SeekStart)
	return err
}

// Sync flushes the segment to stable storage.
func (s *File) Sync() error { return s.f.Sync() }

// Close releases the file handle.
func (s *File) Close() error { return s.f.Close() }
