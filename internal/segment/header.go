package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// HeaderSize is the size of the header at the start of every segment.
const HeaderSize = 32

const headerVersion = 1

var headerMagic = [8]byte{'T', 'X', 'J', 'R', 'N', 'L', '0', '1'}

var (
	ErrInvalidHeader = errors.New("invalid segment header")
	ErrVersion       = errors.New("unsupported segment version")
	ErrForeign       = errors.New("segment belongs to another journal")

	errShortHeader = fmt.Errorf("%w: short header", ErrInvalidHeader)
)

// Header is the fixed preamble of a segment file.
//
// Layout: [Magic: 8] [Version: 2] [Flags: 2] [Reserved: 4] [JournalID: 16]
type Header struct {
	Version   uint16
	Flags     uint16
	JournalID uuid.UUID
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], headerMagic[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.Version)
	binary.LittleEndian.PutUint16(buf[10:12], h.Flags)
	copy(buf[16:32], h.JournalID[:])
	return buf
}

func readHeader(r io.ReaderAt) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, errShortHeader
		}
		return Header{}, err
	}
	if [8]byte(buf[0:8]) != headerMagic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, buf[0:8])
	}
	h := Header{
		Version: binary.LittleEndian.Uint16(buf[8:10]),
		Flags:   binary.LittleEndian.Uint16(buf[10:12]),
	}
	if h.Version != headerVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	copy(h.JournalID[:], buf[16:32])
	return h, nil
}
