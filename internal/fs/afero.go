package fs

import (
	"io"
	iofs "io/fs"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// AferoFS adapts an afero.Fs to FileSystem.
type AferoFS struct {
	Fs afero.Fs
}

// aferoLocks holds one lock table per afero.Fs, so two adapters over the
// same filesystem exclude each other.
var aferoLocks sync.Map // afero.Fs -> *memLocks

// NewAferoFS wraps fsys. A nil fsys yields a fresh in-memory filesystem.
func NewAferoFS(fsys afero.Fs) *AferoFS {
	if fsys == nil {
		fsys = afero.NewMemMapFs()
	}
	return &AferoFS{Fs: fsys}
}

func (a *AferoFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return a.Fs.OpenFile(name, flag, perm)
}

func (a *AferoFS) Remove(name string) error              { return a.Fs.Remove(name) }
func (a *AferoFS) Rename(oldpath, newpath string) error  { return a.Fs.Rename(oldpath, newpath) }
func (a *AferoFS) Stat(name string) (os.FileInfo, error) { return a.Fs.Stat(name) }
func (a *AferoFS) MkdirAll(path string, perm os.FileMode) error {
	return a.Fs.MkdirAll(path, perm)
}

// ReadDir returns the directory entries sorted by name.
func (a *AferoFS) ReadDir(name string) ([]os.DirEntry, error) {
	infos, err := afero.ReadDir(a.Fs, name)
	if err != nil {
		return nil, err
	}
	entries := make([]os.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, iofs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

// Lock is exclusive within the process only. The afero.Fs must be
// comparable, as every afero implementation returned by a constructor is.
func (a *AferoFS) Lock(name string) (io.Closer, error) {
	f, err := a.Fs.OpenFile(name, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	_ = f.Close()
	locks, _ := aferoLocks.LoadOrStore(a.Fs, new(memLocks))
	return locks.(*memLocks).acquire(name)
}
