//go:build !unix

package fs

import (
	"io"
	"os"
)

// Non-unix platforms get an in-process lock only.
var processLocks memLocks

func lockFile(name string) (io.Closer, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR, 0600) //nolint:gosec // G304: lock path derives from journal dir
	if err != nil {
		return nil, err
	}
	_ = f.Close()
	return processLocks.acquire(name)
}
