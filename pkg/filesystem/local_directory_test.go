//go:build unix

package filesystem_test

import (
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func openTmpDir(t *testing.T) (string, filesystem.DirectoryCloser) {
	path := t.TempDir()
	d, err := filesystem.NewLocalDirectory(path)
	require.NoError(t, err)
	return path, d
}

func TestLocalDirectoryEnterBadName(t *testing.T) {
	_, d := openTmpDir(t)
	defer d.Close()

	for _, name := range []string{"", ".", "..", "foo/bar"} {
		_, err := d.EnterDirectory(name)
		testutil.RequireEqualStatus(t, status.Errorf(codes.InvalidArgument, "Invalid filename: %#v", name), err)
	}
}

func TestLocalDirectoryEnterSymlink(t *testing.T) {
	// Symbolic links must never be followed, as they may point to
	// locations outside the build directory.
	path, d := openTmpDir(t)
	defer d.Close()

	require.NoError(t, os.Symlink("/", filepath.Join(path, "symlink")))
	_, err := d.EnterDirectory("symlink")
	require.Error(t, err)
	_, err = d.OpenRead("symlink")
	require.Equal(t, syscall.ELOOP, err)
}

func TestLocalDirectoryWriteAndRead(t *testing.T) {
	path, d := openTmpDir(t)
	defer d.Close()

	require.NoError(t, d.Mkdir("sub", 0o777))
	sub, err := d.EnterDirectory("sub")
	require.NoError(t, err)
	defer sub.Close()

	w, err := sub.OpenWrite("file", filesystem.CreateExcl(0o555))
	require.NoError(t, err)
	_, err = w.Write([]byte("Hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Exclusive creation fails if the file already exists.
	_, err = sub.OpenWrite("file", filesystem.CreateExcl(0o444))
	require.True(t, os.IsExist(err))

	data, err := os.ReadFile(filepath.Join(path, "sub", "file"))
	require.NoError(t, err)
	require.Equal(t, []byte("Hello"), data)

	r, err := sub.OpenRead("file")
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, []byte("Hello"), data)

	require.NoError(t, sub.Chtimes("file", filesystem.DeterministicFileModificationTimestamp, filesystem.DeterministicFileModificationTimestamp))
	info, err := os.Stat(filepath.Join(path, "sub", "file"))
	require.NoError(t, err)
	require.True(t, filesystem.DeterministicFileModificationTimestamp.Equal(info.ModTime().In(time.UTC)))
}

func TestLocalDirectoryReadDir(t *testing.T) {
	_, d := openTmpDir(t)
	defer d.Close()

	require.NoError(t, d.Mkdir("directory", 0o777))
	w, err := d.OpenWrite("executable", filesystem.CreateExcl(0o755))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	w, err = d.OpenWrite("file", filesystem.CreateReuse(0o644))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, d.Symlink("file", "symlink"))

	entries, err := d.ReadDir()
	require.NoError(t, err)
	require.Equal(t, []filesystem.FileInfo{
		filesystem.NewFileInfo("directory", filesystem.FileTypeDirectory),
		filesystem.NewFileInfo("executable", filesystem.FileTypeExecutableFile),
		filesystem.NewFileInfo("file", filesystem.FileTypeRegularFile),
		filesystem.NewFileInfo("symlink", filesystem.FileTypeSymlink),
	}, entries)

	target, err := d.Readlink("symlink")
	require.NoError(t, err)
	require.Equal(t, "file", target)
}

func TestLocalDirectoryRemove(t *testing.T) {
	_, d := openTmpDir(t)
	defer d.Close()

	require.NoError(t, d.Mkdir("directory", 0o777))
	require.NoError(t, d.Symlink("/", "symlink"))
	require.NoError(t, d.Remove("directory"))
	require.NoError(t, d.RemoveAll("symlink"))
	require.NoError(t, d.RemoveAll("nonexistent"))
	require.True(t, os.IsNotExist(d.Remove("nonexistent")))

	entries, err := d.ReadDir()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLocalDirectoryRemoveAllChildren(t *testing.T) {
	path, d := openTmpDir(t)
	defer d.Close()

	// Directories with degenerate permissions should also be
	// removed.
	require.NoError(t, os.MkdirAll(filepath.Join(path, "a", "b", "c"), 0o777))
	require.NoError(t, os.WriteFile(filepath.Join(path, "a", "b", "file"), []byte("Hello"), 0o444))
	require.NoError(t, os.Chmod(filepath.Join(path, "a", "b"), 0o500))
	require.NoError(t, os.WriteFile(filepath.Join(path, "file"), nil, 0o444))

	require.NoError(t, d.RemoveAllChildren())
	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	require.Empty(t, entries)
}
