// Package index keeps the in-memory view of the journal: the live entries of
// every transaction in append order, and which records of each segment are
// still referenced.
package index

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/txjournal/internal/segment"
)

type item[E any] struct {
	pos   segment.Position
	entry E
}

// Index maps transaction ids to their entries. It is not safe for concurrent
// use; the journal guards it.
type Index[E any] struct {
	txs     map[int64][]item[E]
	live    map[uint64]*roaring64.Bitmap // segment -> offsets of live records
	reach   map[uint64]uint64            // segment -> last segment of a removed tx recorded in it
	entries int
}

// New returns an empty index.
func New[E any]() *Index[E] {
	return &Index[E]{
		txs:   make(map[int64][]item[E]),
		live:  make(map[uint64]*roaring64.Bitmap),
		reach: make(map[uint64]uint64),
	}
}

// Add appends entry to tx's list and marks its record live.
func (x *Index[E]) Add(tx int64, pos segment.Position, entry E) {
	x.txs[tx] = append(x.txs[tx], item[E]{pos: pos, entry: entry})
	bm, ok := x.live[pos.Segment]
	if !ok {
		bm = roaring64.New()
		x.live[pos.Segment] = bm
	}
	bm.Add(uint64(pos.Offset)) //nolint:gosec // offsets are never negative
	x.entries++
}

// Get returns a copy of tx's entries in append order. Unknown ids yield an
// empty, non-nil slice.
func (x *Index[E]) Get(tx int64) []E {
	items := x.txs[tx]
	out := make([]E, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out
}

// Remove drops tx and returns how many entries it had. Its records stay
// replayable until every segment holding them can go together, see
// Reclaimable.
func (x *Index[E]) Remove(tx int64) int {
	items := x.drop(tx)
	if len(items) == 0 {
		return 0
	}
	last := items[len(items)-1].pos.Segment
	for _, it := range items {
		if seg := it.pos.Segment; seg < last && x.reach[seg] < last {
			x.reach[seg] = last
		}
	}
	return len(items)
}

// Complete drops tx after replay found it finished. Its remaining records
// end with the record that finished it, so a partial release cannot revive
// it and no reach is recorded.
func (x *Index[E]) Complete(tx int64) int {
	return len(x.drop(tx))
}

func (x *Index[E]) drop(tx int64) []item[E] {
	items, ok := x.txs[tx]
	if !ok {
		return nil
	}
	delete(x.txs, tx)
	x.entries -= len(items)

	for _, it := range items {
		bm := x.live[it.pos.Segment]
		if bm == nil {
			continue
		}
		bm.Remove(uint64(it.pos.Offset)) //nolint:gosec
		if bm.IsEmpty() {
			delete(x.live, it.pos.Segment)
		}
	}
	return items
}

// TxIDs returns the known transaction ids in ascending order.
func (x *Index[E]) TxIDs() []int64 {
	ids := make([]int64, 0, len(x.txs))
	for id := range x.txs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of live entries.
func (x *Index[E]) Len() int { return x.entries }

// Transactions returns the number of known transactions.
func (x *Index[E]) Transactions() int { return len(x.txs) }

// Live returns the number of live records in segment seq.
func (x *Index[E]) Live(seq uint64) uint64 {
	if bm, ok := x.live[seq]; ok {
		return bm.GetCardinality()
	}
	return 0
}

// Reclaimable returns the segments that can be deleted, given every segment
// of the log in ascending order. Only a leading run of sealed segments
// without live records qualifies, and the run is cut back so that no removed
// transaction keeps records in a segment that stays: replay must see either
// all of a transaction or none of it.
func (x *Index[E]) Reclaimable(seqs []uint64, head uint64) []uint64 {
	var (
		bound uint64
		n     int
	)
	for i, seq := range seqs {
		if seq == head || x.Live(seq) > 0 {
			break
		}
		bound = max(bound, x.reach[seq])
		if bound <= seq {
			n = i + 1
		}
	}
	return slices.Clone(seqs[:n])
}

// Forget drops the bookkeeping of a released segment.
func (x *Index[E]) Forget(seq uint64) {
	delete(x.reach, seq)
	delete(x.live, seq)
}

// Oldest returns the lowest segment that still holds live records.
func (x *Index[E]) Oldest() (uint64, bool) {
	var (
		min   uint64
		found bool
	)
	for seq := range x.live {
		if !found || seq < min {
			min, found = seq, true
		}
	}
	return min, found
}
