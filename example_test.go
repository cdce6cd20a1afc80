package txjournal_test

import (
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/txjournal"
)

// Example demonstrates logging a transaction and reading it back after a
// restart.
func Example() {
	dir, err := os.MkdirTemp("", "txjournal-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	j, err := txjournal.Open[string](dir)
	if err != nil {
		log.Fatal(err)
	}
	_ = j.LogAdd(7, "orders", "order-1")
	_ = j.LogRemove(7, "inbox", "msg-9")
	_ = j.Close()

	// After a restart the entries are replayed from disk.
	j, err = txjournal.Open[string](dir)
	if err != nil {
		log.Fatal(err)
	}
	defer j.Close()

	entries, _ := j.GetLogEntries(7)
	for _, e := range entries {
		fmt.Println(e.Op, e.Queue, e.Value)
	}
	// Output:
	// ADD orders order-1
	// REMOVE inbox msg-9
}

// Example_markerCompletion demonstrates dropping finished transactions
// during recovery.
func Example_markerCompletion() {
	dir, err := os.MkdirTemp("", "txjournal-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	j, _ := txjournal.Open[string](dir)
	_ = j.LogAdd(1, "q", "done")
	_ = j.LogCommit(1)
	_ = j.LogAdd(2, "q", "in flight")
	_ = j.Close()

	j, _ = txjournal.Open[string](dir, txjournal.WithMarkerCompletion())
	defer j.Close()

	ids, _ := j.TransactionIDs()
	fmt.Println(ids)
	// Output: [2]
}
