package segment

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	filePrefix       = "journal-"
	fileSuffix       = ".seg"
	quarantineSuffix = ".corrupt"
)

// Filename returns the file name of segment seq, e.g. "journal-00000000000000000001.seg".
func Filename(seq uint64) string {
	return fmt.Sprintf("%s%020d%s", filePrefix, seq, fileSuffix)
}

// ParseFilename extracts the sequence number from a segment file name.
func ParseFilename(name string) (uint64, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return 0, false
	}
	num := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	seq, err := strconv.ParseUint(num, 10, 64)
	if err != nil || seq == 0 {
		return 0, false
	}
	return seq, true
}
