package txjournal

import "fmt"

// Operation is the kind of change a journal entry records.
type Operation uint8

const (
	// OpAdd appends a value to the tail of a queue.
	OpAdd Operation = iota
	// OpAddFirst pushes a value to the head of a queue.
	OpAddFirst
	// OpRemove takes a value off a queue.
	OpRemove
	// OpCommit marks the transaction as committed. It carries no value.
	OpCommit
	// OpRollback marks the transaction as rolled back. It carries no value.
	OpRollback
)

func (o Operation) String() string {
	switch o {
	case OpAdd:
		return "ADD"
	case OpAddFirst:
		return "ADD_FIRST"
	case OpRemove:
		return "REMOVE"
	case OpCommit:
		return "COMMIT"
	case OpRollback:
		return "ROLLBACK"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(o))
	}
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool { return o <= OpRollback }

// Marker reports whether o ends a transaction.
func (o Operation) Marker() bool { return o == OpCommit || o == OpRollback }

// Entry is one logged queue operation.
//
// Queue names may be empty. Commit and rollback markers ignore Value and
// are replayed with the zero value. Values come back as the codec decodes
// them: codec.Gob turns an empty slice or map into nil, codec.Raw (the
// default for []byte values) returns an empty non-nil slice.
type Entry[V any] struct {
	TxID  int64
	Op    Operation
	Queue string
	Value V
}

func (e Entry[V]) String() string {
	return fmt.Sprintf("tx=%d op=%s queue=%q", e.TxID, e.Op, e.Queue)
}

// NeverSkip is the default skip predicate: every recovered entry is kept.
func NeverSkip[V any](Entry[V]) bool { return false }

// NeverComplete is the default completion predicate: recovery keeps every
// transaction until the caller removes it.
func NeverComplete[V any](Entry[V]) bool { return false }

// CompletedByMarker treats commit and rollback markers as the end of a
// transaction, so recovery drops transactions that already finished.
func CompletedByMarker[V any](e Entry[V]) bool { return e.Op.Marker() }
