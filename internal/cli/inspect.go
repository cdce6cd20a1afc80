package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/txjournal/internal/fs"
	"github.com/hupe1980/txjournal/internal/segment"
)

// scanResult is everything the commands know about a journal directory.
type scanResult struct {
	JournalID string
	Scans     []segment.SegmentScan
	Sizes     []int64
}

func scanDir(ctx context.Context, fsys fs.FileSystem, dir string) (*scanResult, error) {
	ok, err := segment.Exists(fsys, dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no journal segments in %s", dir)
	}

	log, err := segment.Open(segment.Options{Dir: dir, FS: fsys, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer log.Close()

	scans, err := log.ScanAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	res := &scanResult{Scans: scans}
	if len(scans) > 0 {
		res.JournalID = log.ID().String()
	}
	for _, s := range log.Segments() {
		res.Sizes = append(res.Sizes, s.Size())
	}
	return res, nil
}

// firstCorruption returns the index of the first segment whose scan stopped
// at a corrupt record, or -1.
func (r *scanResult) firstCorruption() int {
	for i, s := range r.Scans {
		if s.Cause != nil {
			return i
		}
	}
	return -1
}

const previewLen = 32

// preview renders value bytes for humans: printable ASCII is kept, anything
// else becomes '.'.
func preview(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i == previewLen {
			sb.WriteString("...")
			break
		}
		if c >= 0x20 && c < 0x7f {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
