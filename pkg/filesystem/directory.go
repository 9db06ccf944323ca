package filesystem

import (
	"io"
	"os"
	"time"
)

// DeterministicFileModificationTimestamp is a fixed timestamp that is
// assigned to all files in an input root, so that build actions that
// compare modification times behave reproducibly.
//
// 2000-01-01T00:00:00Z was chosen, because it's easy to distinguish
// from genuine timestamps. 1970-01-01T00:00:00Z tends to cause
// regressions in practice.
var DeterministicFileModificationTimestamp = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// CreationMode specifies whether and how Directory.OpenWrite() should
// create new files.
type CreationMode struct {
	flags       int
	permissions os.FileMode
}

// ShouldFailWhenExists returns whether a new file must be created. When
// true, opening must fail in case the target file already exists.
func (c CreationMode) ShouldFailWhenExists() bool {
	return (c.flags & os.O_EXCL) != 0
}

// GetPermissions returns the file permissions the newly created file
// should have.
func (c CreationMode) GetPermissions() os.FileMode {
	return c.permissions
}

// CreateReuse indicates that a new file should be created if it doesn't
// already exist. If the target file already exists, it is truncated.
func CreateReuse(perm os.FileMode) CreationMode {
	return CreationMode{flags: os.O_CREATE | os.O_TRUNC, permissions: perm}
}

// CreateExcl indicates that a new file should be created. If the target
// file already exists, opening shall fail.
func CreateExcl(perm os.FileMode) CreationMode {
	return CreationMode{flags: os.O_CREATE | os.O_EXCL, permissions: perm}
}

// FileReader is returned by Directory.OpenRead().
type FileReader interface {
	io.ReadSeekCloser
}

// FileWriter is returned by Directory.OpenWrite().
type FileWriter interface {
	io.WriteCloser

	Sync() error
}

// Directory is an abstraction for accessing a subtree of the file
// system. Each of the functions rejects access to data stored outside
// of the subtree, meaning that names may not contain slashes and
// symbolic links are never followed. This allows build directories to
// be populated and inspected safely, even if the build action placed
// malicious symbolic links in them.
type Directory interface {
	// EnterDirectory creates a derived directory handle for a
	// subdirectory of the current subtree.
	EnterDirectory(name string) (DirectoryCloser, error)

	// OpenRead opens a file contained within the directory for
	// reading.
	OpenRead(name string) (FileReader, error)
	// OpenWrite opens a file contained within the directory for
	// writing.
	OpenWrite(name string, creationMode CreationMode) (FileWriter, error)

	// Lstat is the equivalent of os.Lstat().
	Lstat(name string) (FileInfo, error)
	// Mkdir is the equivalent of os.Mkdir().
	Mkdir(name string, perm os.FileMode) error
	// ReadDir returns information on all files in the directory,
	// sorted by name.
	ReadDir() ([]FileInfo, error)
	// Readlink is the equivalent of os.Readlink().
	Readlink(name string) (string, error)
	// Remove is the equivalent of os.Remove().
	Remove(name string) error
	// RemoveAll is the equivalent of os.RemoveAll().
	RemoveAll(name string) error
	// RemoveAllChildren empties out a directory, without removing
	// the directory itself.
	RemoveAllChildren() error
	// Symlink is the equivalent of os.Symlink().
	Symlink(target, name string) error
	// Chtimes sets the atime and mtime of the named file, without
	// following symbolic links.
	Chtimes(name string, atime, mtime time.Time) error
}

// DirectoryCloser is a Directory handle that can be released.
type DirectoryCloser interface {
	Directory
	io.Closer
}
