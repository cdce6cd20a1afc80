// Package record frames journal entries as length-prefixed, checksummed
// byte records.
//
// Layout (little-endian):
//
//	[Length: 4] [TxID: 8] [Op: 1] [QueueLen: 4] [Queue] [ValueLen: 4] [Value] [CRC32C: 4]
//
// Length counts every byte after itself, the checksum included, so a reader
// can tell a torn tail from a complete record without parsing the payload.
package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

const (
	// LengthSize is the size of the leading length prefix.
	LengthSize = 4
	// MinBodySize is the body size of a record with an empty queue and value.
	MinBodySize = 8 + 1 + 4 + 4 + 4
	// MaxRecordSize bounds a single record, prefix included.
	MaxRecordSize = 64 << 20
)

var (
	ErrTruncated      = errors.New("truncated record")
	ErrChecksum       = errors.New("record checksum mismatch")
	ErrInvalidLength  = errors.New("invalid record length")
	ErrRecordTooLarge = errors.New("record too large")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Record is the decoded form of one framed record. Queue and Value are
// opaque bytes.
type Record struct {
	TxID  int64
	Op    uint8
	Queue []byte
	Value []byte
}

// Size returns the encoded size of r, length prefix included.
func (r *Record) Size() int {
	return LengthSize + MinBodySize + len(r.Queue) + len(r.Value)
}

// Encode appends the framed record to dst.
func (r *Record) Encode(dst []byte) ([]byte, error) {
	size := r.Size()
	if size > MaxRecordSize || len(r.Queue) > math.MaxInt32 || len(r.Value) > math.MaxInt32 {
		return dst, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, size)
	}

	start := len(dst)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(size-LengthSize)) //nolint:gosec // bounded by MaxRecordSize
	dst = binary.LittleEndian.AppendUint64(dst, uint64(r.TxID))          //nolint:gosec // two's complement round-trips
	dst = append(dst, r.Op)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Queue))) //nolint:gosec
	dst = append(dst, r.Queue...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Value))) //nolint:gosec
	dst = append(dst, r.Value...)

	sum := crc32.Checksum(dst[start+LengthSize:], castagnoli)
	dst = binary.LittleEndian.AppendUint32(dst, sum)
	return dst, nil
}

// Decode reads one record from r. It returns the number of bytes consumed
// alongside the record. A clean end of input on a record boundary is io.EOF;
// every other failure wraps one of the package errors.
func Decode(r io.Reader) (*Record, int64, error) {
	var prefix [LengthSize]byte
	n, err := io.ReadFull(r, prefix[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, int64(n), fmt.Errorf("%w: partial length prefix (%d bytes)", ErrTruncated, n)
		}
		return nil, int64(n), err
	}

	length := binary.LittleEndian.Uint32(prefix[:])
	if length < MinBodySize || length > MaxRecordSize-LengthSize {
		return nil, LengthSize, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	body := make([]byte, length)
	n, err = io.ReadFull(r, body)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, LengthSize + int64(n), fmt.Errorf("%w: have %d of %d bytes", ErrTruncated, n, length)
		}
		return nil, LengthSize + int64(n), err
	}
	consumed := LengthSize + int64(length)

	payload, trailer := body[:length-4], body[length-4:]
	if crc32.Checksum(payload, castagnoli) != binary.LittleEndian.Uint32(trailer) {
		return nil, consumed, ErrChecksum
	}

	rec, err := parse(payload)
	if err != nil {
		return nil, consumed, err
	}
	return rec, consumed, nil
}

func parse(p []byte) (*Record, error) {
	rec := &Record{
		TxID: int64(binary.LittleEndian.Uint64(p[0:8])), //nolint:gosec
		Op:   p[8],
	}
	off := 9

	queue, off, err := readBytes(p, off)
	if err != nil {
		return nil, fmt.Errorf("queue name: %w", err)
	}
	value, off, err := readBytes(p, off)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if off != len(p) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidLength, len(p)-off)
	}
	rec.Queue = queue
	rec.Value = value
	return rec, nil
}

func readBytes(p []byte, off int) ([]byte, int, error) {
	if len(p) < off+4 {
		return nil, 0, ErrInvalidLength
	}
	n := int(binary.LittleEndian.Uint32(p[off:]))
	off += 4
	if n < 0 || len(p)-off < n {
		return nil, 0, fmt.Errorf("%w: field of %d bytes", ErrInvalidLength, n)
	}
	out := make([]byte, n)
	copy(out, p[off:off+n])
	return out, off + n, nil
}

// Reader iterates over consecutive records, tracking the offset of the end of
// the last good record.
type Reader struct {
	r      *bufio.Reader
	offset int64
}

// NewReader returns a Reader whose offsets start at base.
func NewReader(r io.Reader, base int64) *Reader {
	return &Reader{r: bufio.NewReader(r), offset: base}
}

// Next reads the next record. It returns io.EOF at a clean end.
func (r *Reader) Next() (*Record, int64, error) {
	start := r.offset
	rec, n, err := Decode(r.r)
	if err != nil {
		return nil, start, err
	}
	r.offset += n
	return rec, start, nil
}

// Offset is the end offset of the last record Next returned.
func (r *Reader) Offset() int64 {
	return r.offset
}

// IsCorruption reports whether err marks a malformed or torn record, as
// opposed to an I/O failure of the underlying reader.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrChecksum) ||
		errors.Is(err, ErrInvalidLength)
}
