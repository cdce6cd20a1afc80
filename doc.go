// Package txjournal provides a durable transaction journal for persistent
// local queues.
//
// Every queue operation performed inside a transaction is appended to an
// on-disk log before it takes effect. After a crash the journal is reopened,
// the log is replayed, and the queue store asks for the entries of each
// transaction it still has to finish.
//
// # Quick Start
//
//	j, err := txjournal.Open[string]("./journal")
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//
//	_ = j.LogAdd(7, "orders", "order-1")
//	_ = j.LogRemove(7, "inbox", "msg-9")
//	_ = j.LogCommit(7)
//
//	entries, _ := j.GetLogEntries(7) // ADD, REMOVE, COMMIT in append order
//	_ = j.Remove(7)                  // transaction applied; forget it
//
// # On-disk layout
//
// The journal directory holds numbered segment files and a LOCK file. The
// head segment receives appends; once it grows past the rotation threshold
// (500 KiB by default) the next append starts a new segment. A sealed
// segment is deleted when every transaction with records in it has been
// removed.
//
// # Recovery
//
// Open scans all segments, drops the entries rejected by the skip predicate,
// and rebuilds the per-transaction index. A torn or corrupt record ends the
// replay: the log is truncated to the last good record and any later
// segments are renamed with a ".corrupt" suffix.
package txjournal
