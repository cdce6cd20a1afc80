package txjournal

import (
	"errors"
	"fmt"

	"github.com/hupe1980/txjournal/internal/fs"
)

var (
	// ErrIllegalState is returned by operations on a journal that is not
	// ready, most commonly after Close.
	ErrIllegalState = errors.New("journal: illegal state")

	// ErrCorruptRecord matches every CorruptRecordError.
	ErrCorruptRecord = errors.New("journal: corrupt record")

	// ErrInvalidOperation is returned for an Operation outside the known set.
	ErrInvalidOperation = errors.New("journal: invalid operation")

	// ErrLocked is returned by Open when another journal owns the directory.
	ErrLocked = fs.ErrLocked
)

// CorruptRecordError reports a record that could not be decoded during
// recovery. The log is truncated at Offset.
//
// The original underlying error can be accessed via errors.Unwrap.
type CorruptRecordError struct {
	Segment uint64
	Offset  int64
	cause   error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record in segment %d at offset %d: %v", e.Segment, e.Offset, e.cause)
}

func (e *CorruptRecordError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrCorruptRecord) succeed.
func (e *CorruptRecordError) Is(target error) bool { return target == ErrCorruptRecord }

// IOFailure reports a failed read, write, or sync against the journal files.
// After an append failure the journal refuses further mutations until it is
// reopened.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOFailure struct {
	Op    string
	Path  string
	cause error
}

func (e *IOFailure) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("journal %s: %v", e.Op, e.cause)
	}
	return fmt.Sprintf("journal %s %s: %v", e.Op, e.Path, e.cause)
}

func (e *IOFailure) Unwrap() error { return e.cause }

// SerializationError reports a value the codec could not encode. Nothing is
// written when it is returned.
//
// The original underlying error can be accessed via errors.Unwrap.
type SerializationError struct {
	Codec string
	TxID  int64
	cause error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize value of tx %d with %s codec: %v", e.TxID, e.Codec, e.cause)
}

func (e *SerializationError) Unwrap() error { return e.cause }
