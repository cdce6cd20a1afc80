package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/txjournal"
	"github.com/hupe1980/txjournal/codec"
	"github.com/hupe1980/txjournal/internal/segment"
	"github.com/hupe1980/txjournal/testutil"
)

// writeJournal creates a journal with two transactions. Raw values keep the
// record layout byte-for-byte predictable.
func writeJournal(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	j, err := txjournal.Open[string](dir, txjournal.WithCodec(codec.Raw{}))
	require.NoError(t, err)
	require.NoError(t, j.LogAdd(1, "orders", "order-1"))
	require.NoError(t, j.LogRemove(1, "inbox", "msg-9"))
	require.NoError(t, j.LogCommit(1))
	require.NoError(t, j.LogAdd(2, "orders", "order-2"))
	require.NoError(t, j.Close())
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestDump_Golden(t *testing.T) {
	dir := writeJournal(t)

	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			out, err := run(t, "dump", "--dir", dir, "--format", format)
			require.NoError(t, err)
			golden(t).Assert(t, "dump_"+format, []byte(out))
		})
	}
}

func TestDump_TxFilter(t *testing.T) {
	dir := writeJournal(t)

	out, err := run(t, "dump", "--dir", dir, "--format", "json", "--tx", "2")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []DumpRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(2), resp.Data[0].TxID)
	assert.Equal(t, "order-2", resp.Data[0].Value)
}

func TestStats(t *testing.T) {
	dir := writeJournal(t)

	out, err := run(t, "stats", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 segment(s), 168 B, 4 record(s), 2 transaction(s)")

	out, err = run(t, "stats", "--dir", dir, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data StatsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Segments, 1)
	assert.Equal(t, int64(168), resp.Data.TotalSize)
	assert.Equal(t, 4, resp.Data.Segments[0].Records)
	assert.Equal(t, 2, resp.Data.Segments[0].Transactions)
	assert.False(t, resp.Data.Segments[0].Corrupt)
	assert.NotEmpty(t, resp.Data.JournalID)
}

func TestVerify(t *testing.T) {
	dir := writeJournal(t)

	out, err := run(t, "verify", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "ok: 4 record(s) in 1 segment(s)\n", out)

	head := filepath.Join(dir, segment.Filename(1))
	testutil.AppendBytes(t, head, []byte{0x40, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03})

	out, err = run(t, "verify", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "corrupt: segment 1 at offset 168")
	assert.Contains(t, out, "(4 good record(s) before it)")

	// verify never repairs.
	assert.Equal(t, int64(175), testutil.FileSize(t, head))

	out, err = run(t, "verify", "--dir", dir, "--format", "json")
	require.Error(t, err)
	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Data.Corruption)
	assert.Equal(t, int64(168), resp.Data.Corruption.Offset)
}

func TestVerify_Codec(t *testing.T) {
	dir := writeJournal(t)

	out, err := run(t, "verify", "--dir", dir, "--codec", "raw")
	require.NoError(t, err)
	assert.Equal(t, "ok: 4 record(s) in 1 segment(s)\n", out)

	// Framing is fine, but the values are not JSON.
	out, err = run(t, "verify", "--dir", dir, "--codec", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "corrupt: segment 1 at offset 32: decode value")
	assert.Contains(t, out, "(0 good record(s) before it)")

	_, err = run(t, "verify", "--dir", dir, "--codec", "lz4+gob")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = run(t, "verify", "--dir", dir, "--codec", "nope")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerify_CodecGob(t *testing.T) {
	dir := t.TempDir()
	j, err := txjournal.Open[string](dir, txjournal.WithCodec(codec.Gob{}))
	require.NoError(t, err)
	require.NoError(t, j.LogAdd(1, "q", "v"))
	require.NoError(t, j.LogCommit(1))
	require.NoError(t, j.Close())

	out, err := run(t, "verify", "--dir", dir, "--codec", "gob")
	require.NoError(t, err)
	assert.Equal(t, "ok: 2 record(s) in 1 segment(s)\n", out)
}

func TestRoot_Errors(t *testing.T) {
	_, err := run(t, "stats")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, "stats", "--dir", t.TempDir(), "--format", "yaml")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, "dump", "--dir", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	// A directory without segments is not a journal.
	_, err = run(t, "verify", "--dir", t.TempDir())
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "ab.c", preview([]byte{'a', 'b', 0x00, 'c'}))
	assert.Equal(t, "", preview(nil))

	long := bytes.Repeat([]byte("x"), 40)
	assert.Equal(t, string(long[:32])+"...", preview(long))
}
