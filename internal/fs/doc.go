// Package fs is the filesystem seam of the journal.
//
// Segment I/O never touches package os directly. It goes through a
// [FileSystem], which lets tests swap the disk for an in-memory tree or for a
// wrapper that fails on demand.
//
// # Implementations
//
//   - [LocalFS]: the os package; directory locks use flock(2) on unix.
//   - [AferoFS]: any afero.Fs, typically afero.NewMemMapFs() in tests.
//   - [FaultyFS]: wraps another FileSystem and injects write, sync, and close errors.
//
// # Usage
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
//
// Fault injection:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".seg", fs.Fault{FailAfterBytes: 1024})
//
// Operations take no context.Context. Local file calls are short and cannot be
// interrupted at the syscall level.
package fs
