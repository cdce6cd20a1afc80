package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/txjournal/internal/segment"
)

func pos(seg uint64, off int64) segment.Position {
	return segment.Position{Segment: seg, Offset: off}
}

func TestIndex_AddGetOrder(t *testing.T) {
	x := New[string]()
	x.Add(2, pos(1, 32), "a")
	x.Add(1, pos(1, 60), "x")
	x.Add(2, pos(1, 90), "b")
	x.Add(2, pos(2, 32), "c")

	assert.Equal(t, []string{"a", "b", "c"}, x.Get(2))
	assert.Equal(t, []string{"x"}, x.Get(1))
	assert.Equal(t, 4, x.Len())
	assert.Equal(t, 2, x.Transactions())
	assert.Equal(t, []int64{1, 2}, x.TxIDs())
}

func TestIndex_GetUnknownIsEmpty(t *testing.T) {
	x := New[int]()
	got := x.Get(42)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIndex_GetReturnsCopy(t *testing.T) {
	x := New[string]()
	x.Add(1, pos(1, 32), "a")
	got := x.Get(1)
	got[0] = "mutated"
	assert.Equal(t, []string{"a"}, x.Get(1))
}

func TestIndex_RemoveAndLive(t *testing.T) {
	x := New[string]()
	x.Add(1, pos(1, 32), "a")
	x.Add(2, pos(1, 60), "b")
	x.Add(1, pos(2, 32), "c")

	assert.Equal(t, uint64(2), x.Live(1))
	assert.Equal(t, uint64(1), x.Live(2))

	assert.Equal(t, 2, x.Remove(1))
	assert.Equal(t, uint64(1), x.Live(1))
	assert.Equal(t, uint64(0), x.Live(2))
	assert.Empty(t, x.Get(1))
	assert.Equal(t, 1, x.Len())

	assert.Zero(t, x.Remove(1))
}

func TestIndex_Reclaimable(t *testing.T) {
	x := New[string]()
	x.Add(1, pos(2, 32), "a")
	x.Add(2, pos(4, 32), "b")

	// Segment 2 is live, so 3 must wait even though it is empty.
	assert.Equal(t, []uint64{1}, x.Reclaimable([]uint64{1, 2, 3, 4}, 4))
	assert.Empty(t, x.Reclaimable([]uint64{2, 3, 4}, 4))

	oldest, ok := x.Oldest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), oldest)

	x.Remove(1)
	assert.Equal(t, []uint64{2, 3}, x.Reclaimable([]uint64{2, 3, 4}, 4))
	x.Remove(2)
	assert.Equal(t, []uint64{2, 3, 4}, x.Reclaimable([]uint64{2, 3, 4, 5}, 5))
	_, ok = x.Oldest()
	assert.False(t, ok)
}

func TestIndex_ReclaimableKeepsRemovedTxWhole(t *testing.T) {
	x := New[string]()
	x.Add(1, pos(1, 32), "a")
	x.Add(2, pos(2, 32), "b")
	x.Add(1, pos(2, 64), "c")
	x.Add(3, pos(3, 32), "d")

	// Releasing segment 1 alone would leave half of tx 1 on disk.
	x.Remove(1)
	assert.Empty(t, x.Reclaimable([]uint64{1, 2, 3, 4}, 4))

	x.Remove(2)
	assert.Equal(t, []uint64{1, 2}, x.Reclaimable([]uint64{1, 2, 3, 4}, 4))

	x.Forget(1)
	x.Forget(2)
	assert.Empty(t, x.Reclaimable([]uint64{3, 4}, 4))
}

func TestIndex_ReclaimableRemovedTxReachesHead(t *testing.T) {
	x := New[string]()
	x.Add(1, pos(1, 32), "a")
	x.Add(1, pos(2, 32), "b")
	x.Remove(1)

	assert.Empty(t, x.Reclaimable([]uint64{1, 2}, 2))
	assert.Equal(t, []uint64{1, 2}, x.Reclaimable([]uint64{1, 2, 3}, 3))
}

func TestIndex_CompleteAllowsPartialRelease(t *testing.T) {
	x := New[string]()
	x.Add(1, pos(1, 32), "a")
	x.Add(1, pos(2, 32), "b")
	x.Add(2, pos(2, 64), "c")

	assert.Equal(t, 2, x.Complete(1))
	assert.Equal(t, 1, x.Len())
	assert.Equal(t, []uint64{1}, x.Reclaimable([]uint64{1, 2, 3}, 3))
}
