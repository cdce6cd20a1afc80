package segment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/txjournal/internal/fs"
	"github.com/hupe1980/txjournal/internal/record"
)

func frame(t *testing.T, tx int64, queue, value string) []byte {
	t.Helper()
	r := &record.Record{TxID: tx, Queue: []byte(queue), Value: []byte(value)}
	b, err := r.Encode(nil)
	require.NoError(t, err)
	return b
}

func openLog(t *testing.T, opts Options) *Log {
	t.Helper()
	l, err := Open(opts)
	require.NoError(t, err)
	return l
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "journal-00000000000000000007.seg", Filename(7))

	seq, ok := ParseFilename("/tmp/x/" + Filename(42))
	require.True(t, ok)
	assert.Equal(t, uint64(42), seq)

	for _, bad := range []string{"journal-abc.seg", "journal-1.log", "LOCK", Filename(3) + ".corrupt", "journal-0.seg"} {
		_, ok := ParseFilename(bad)
		assert.False(t, ok, bad)
	}
}

func TestLog_AppendScanReopen(t *testing.T) {
	dir := t.TempDir()
	l := openLog(t, Options{Dir: dir})
	require.Len(t, l.Segments(), 1)
	assert.Equal(t, int64(HeaderSize), l.CurrentSize())

	var positions []Position
	for i, v := range []string{"a", "bb", "ccc"} {
		pos, rotated, err := l.Append(frame(t, int64(i), "q", v))
		require.NoError(t, err)
		assert.False(t, rotated)
		positions = append(positions, pos)
	}
	assert.Equal(t, int64(HeaderSize), positions[0].Offset)

	rec, err := l.Read(positions[2])
	require.NoError(t, err)
	assert.Equal(t, "ccc", string(rec.Value))

	id := l.ID()
	require.NoError(t, l.Close())

	l = openLog(t, Options{Dir: dir})
	defer l.Close()
	assert.Equal(t, id, l.ID())

	scans, err := l.ScanAll(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.NoError(t, scans[0].Cause)
	require.Len(t, scans[0].Records, 3)
	for i, p := range scans[0].Records {
		assert.Equal(t, positions[i], p.Pos)
		assert.Equal(t, int64(i), p.Record.TxID)
	}
	assert.Equal(t, l.CurrentSize(), scans[0].End)
}

func TestLog_Rotation(t *testing.T) {
	l := openLog(t, Options{Dir: "/j", FS: fs.NewAferoFS(nil), RotationThreshold: 100})
	defer l.Close()

	// 70 bytes per record: every segment holds exactly one.
	rec := frame(t, 1, "queue", "0123456789012345678901234567890123456789")

	var rotations int
	for i := 0; i < 6; i++ {
		pos, rotated, err := l.Append(rec)
		require.NoError(t, err)
		if rotated {
			rotations++
		}
		assert.Equal(t, l.Head().Seq(), pos.Segment)
	}
	assert.Equal(t, len(l.Segments())-1, rotations)
	assert.Greater(t, len(l.Segments()), 1)

	scans, err := l.ScanAll(context.Background(), 0)
	require.NoError(t, err)
	var total int
	for _, s := range scans {
		assert.NoError(t, s.Cause)
		total += len(s.Records)
	}
	assert.Equal(t, 6, total)
}

func TestLog_Release(t *testing.T) {
	dir := t.TempDir()
	l := openLog(t, Options{Dir: dir, RotationThreshold: 1})
	defer l.Close()

	_, _, err := l.Append(frame(t, 1, "q", "v"))
	require.NoError(t, err)
	_, rotated, err := l.Append(frame(t, 2, "q", "v"))
	require.NoError(t, err)
	require.True(t, rotated)

	assert.ErrorIs(t, l.Release(l.Head().Seq()), ErrHeadSegment)

	first := l.Segments()[0]
	require.NoError(t, l.Release(first.Seq()))
	_, err = os.Stat(first.Path())
	assert.True(t, os.IsNotExist(err))
	assert.Len(t, l.Segments(), 1)

	assert.Error(t, l.Release(99))
}

func TestLog_TornTailAndRepair(t *testing.T) {
	dir := t.TempDir()
	l := openLog(t, Options{Dir: dir})
	_, _, err := l.Append(frame(t, 1, "q", "first"))
	require.NoError(t, err)
	pos, _, err := l.Append(frame(t, 2, "q", "second"))
	require.NoError(t, err)
	path := l.Head().Path()
	require.NoError(t, l.Close())

	require.NoError(t, os.Truncate(path, pos.Offset+7))

	l = openLog(t, Options{Dir: dir})
	defer l.Close()

	scans, err := l.ScanAll(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, scans[0].Records, 1)
	assert.ErrorIs(t, scans[0].Cause, record.ErrTruncated)
	assert.Equal(t, pos.Offset, scans[0].End)

	quarantined, err := l.Repair(Position{Segment: scans[0].Seq, Offset: scans[0].End})
	require.NoError(t, err)
	assert.Empty(t, quarantined)
	assert.Equal(t, pos.Offset, l.CurrentSize())

	again, _, err := l.Append(frame(t, 3, "q", "third"))
	require.NoError(t, err)
	assert.Equal(t, pos.Offset, again.Offset)

	rec, err := l.Read(again)
	require.NoError(t, err)
	assert.Equal(t, "third", string(rec.Value))
}

func TestLog_RepairQuarantinesLaterSegments(t *testing.T) {
	afs := fs.NewAferoFS(nil)
	l := openLog(t, Options{Dir: "/j", FS: afs, RotationThreshold: 1})
	defer l.Close()

	for i := 0; i < 3; i++ {
		_, _, err := l.Append(frame(t, int64(i), "q", "v"))
		require.NoError(t, err)
	}
	require.Len(t, l.Segments(), 3)
	first := l.Segments()[0]

	quarantined, err := l.Repair(Position{Segment: first.Seq(), Offset: HeaderSize})
	require.NoError(t, err)
	assert.Len(t, quarantined, 2)
	require.Len(t, l.Segments(), 1)
	assert.True(t, l.Head().Empty())

	for _, q := range quarantined {
		_, err := afs.Stat(q)
		assert.NoError(t, err)
	}
}

func TestLog_ForeignSegment(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	la := openLog(t, Options{Dir: a})
	require.NoError(t, la.Close())
	lb := openLog(t, Options{Dir: b})
	require.NoError(t, lb.Close())

	data, err := os.ReadFile(filepath.Join(b, Filename(1)))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(a, Filename(2)), data, 0644))

	_, err = Open(Options{Dir: a})
	assert.ErrorIs(t, err, ErrForeign)
}

func TestLog_BadMagic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename(1)), make([]byte, 64), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename(2)), []byte("xx"), 0644))

	_, err := Open(Options{Dir: dir})
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestLog_ShortHeadHeaderIsRecreated(t *testing.T) {
	dir := t.TempDir()
	l := openLog(t, Options{Dir: dir, RotationThreshold: 1})
	_, _, err := l.Append(frame(t, 1, "q", "v"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename(2)), []byte("TXJ"), 0644))

	l = openLog(t, Options{Dir: dir})
	defer l.Close()
	require.Len(t, l.Segments(), 2)
	assert.True(t, l.Head().Empty())
	assert.Equal(t, l.Segments()[0].JournalID(), l.Head().JournalID())
}

func TestLog_FailedAppendLeavesNoBytes(t *testing.T) {
	ffs := fs.NewFaultyFS(fs.NewAferoFS(nil))
	l := openLog(t, Options{Dir: "/j", FS: ffs})
	_, _, err := l.Append(frame(t, 1, "q", "ok"))
	require.NoError(t, err)
	size := l.CurrentSize()
	require.NoError(t, l.Close())

	ffs.AddRule(".seg", fs.Fault{FailAfterBytes: 10, PartialWrite: true})
	l = openLog(t, Options{Dir: "/j", FS: ffs})
	defer l.Close()

	_, _, err = l.Append(frame(t, 2, "q", "doomed"))
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, size, l.CurrentSize())

	scans, err := l.ScanAll(context.Background(), 1)
	require.NoError(t, err)
	assert.NoError(t, scans[0].Cause)
	assert.Len(t, scans[0].Records, 1)
}

func TestLog_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	ok, err := Exists(nil, dir)
	require.NoError(t, err)
	assert.False(t, ok)

	l := openLog(t, Options{Dir: dir})
	require.NoError(t, l.Close())

	ok, err = Exists(nil, dir)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Exists(nil, filepath.Join(dir, Filename(1)))
	assert.Error(t, err)

	ro := openLog(t, Options{Dir: dir, ReadOnly: true})
	defer ro.Close()
	_, _, err = ro.Append(frame(t, 1, "q", "v"))
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, ro.Rotate(), ErrReadOnly)
}

func TestDurability_String(t *testing.T) {
	assert.Equal(t, "sync", DurabilitySync.String())
	assert.Equal(t, "async", DurabilityAsync.String())
	assert.Equal(t, "Durability(9)", Durability(9).String())
}
