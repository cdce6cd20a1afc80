package txjournal

import "time"

// State is the lifecycle stage of a journal.
type State int32

const (
	// StateNew is a journal that has not started recovery.
	StateNew State = iota
	// StateScanning is a journal replaying its log.
	StateScanning
	// StateReady is a journal accepting operations.
	StateReady
	// StateClosed is a journal after Close. It stays closed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateScanning:
		return "SCANNING"
	case StateReady:
		return "READY"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// RecoveryStats describes what Open found in the log.
type RecoveryStats struct {
	Segments     int
	Records      int
	Entries      int
	Transactions int
	Skipped      int
	Completed    int

	// Truncated is set when recovery cut the log at a corrupt record.
	Truncated      bool
	TruncatedAt    string
	TruncateReason string
	Quarantined    []string

	Released int
	Duration time.Duration
}

// Stats is a point-in-time view of a journal.
type Stats struct {
	Dir          string
	JournalID    string
	State        State
	Failed       bool
	Segments     int
	HeadSegment  uint64
	CurrentSize  int64
	TotalSize    int64
	Transactions int
	Entries      int
	Recovery     RecoveryStats
}
