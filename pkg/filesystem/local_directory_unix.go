//go:build unix

package filesystem

import (
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type localDirectory struct {
	fd int
}

var _ DirectoryCloser = (*localDirectory)(nil)

func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return status.Errorf(codes.InvalidArgument, "Invalid filename: %#v", name)
	}
	return nil
}

func newLocalDirectoryFromFileDescriptor(fd int) *localDirectory {
	d := &localDirectory{
		fd: fd,
	}
	runtime.SetFinalizer(d, (*localDirectory).Close)
	return d
}

// NewLocalDirectory creates a directory handle that corresponds to a
// local path on the system.
func NewLocalDirectory(path string) (DirectoryCloser, error) {
	fd, err := unix.Openat(unix.AT_FDCWD, path, unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return newLocalDirectoryFromFileDescriptor(fd), nil
}

func (d *localDirectory) enter(name string) (*localDirectory, error) {
	if err := validateFilename(name); err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(d)

	fd, err := unix.Openat(d.fd, name, unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return newLocalDirectoryFromFileDescriptor(fd), nil
}

func (d *localDirectory) EnterDirectory(name string) (DirectoryCloser, error) {
	return d.enter(name)
}

func (d *localDirectory) Close() error {
	fd := d.fd
	d.fd = -1
	runtime.SetFinalizer(d, nil)
	return unix.Close(fd)
}

func (d *localDirectory) open(name string, flag int, perm os.FileMode) (*os.File, error) {
	if err := validateFilename(name); err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(d)

	fd, err := unix.Openat(d.fd, name, flag|unix.O_NOFOLLOW|unix.O_CLOEXEC, uint32(perm))
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), name), nil
}

func (d *localDirectory) OpenRead(name string) (FileReader, error) {
	return d.open(name, os.O_RDONLY, 0)
}

func (d *localDirectory) OpenWrite(name string, creationMode CreationMode) (FileWriter, error) {
	return d.open(name, os.O_WRONLY|creationMode.flags, creationMode.permissions)
}

func (d *localDirectory) Lstat(name string) (FileInfo, error) {
	if err := validateFilename(name); err != nil {
		return FileInfo{}, err
	}
	defer runtime.KeepAlive(d)

	var stat unix.Stat_t
	if err := unix.Fstatat(d.fd, name, &stat, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return FileInfo{}, err
	}
	fileType := FileTypeOther
	switch stat.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		fileType = FileTypeDirectory
	case unix.S_IFLNK:
		fileType = FileTypeSymlink
	case unix.S_IFREG:
		if stat.Mode&0o111 != 0 {
			fileType = FileTypeExecutableFile
		} else {
			fileType = FileTypeRegularFile
		}
	}
	return NewFileInfo(name, fileType), nil
}

func (d *localDirectory) Mkdir(name string, perm os.FileMode) error {
	if err := validateFilename(name); err != nil {
		return err
	}
	defer runtime.KeepAlive(d)

	return unix.Mkdirat(d.fd, name, uint32(perm))
}

func (d *localDirectory) readdirnames() ([]string, error) {
	defer runtime.KeepAlive(d)

	fd, err := unix.Openat(d.fd, ".", unix.O_DIRECTORY|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	f := os.NewFile(uintptr(fd), ".")
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (d *localDirectory) ReadDir() ([]FileInfo, error) {
	names, err := d.readdirnames()
	if err != nil {
		return nil, err
	}
	list := make([]FileInfo, 0, len(names))
	for _, name := range names {
		info, err := d.Lstat(name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		list = append(list, info)
	}
	return list, nil
}

func (d *localDirectory) Readlink(name string) (string, error) {
	if err := validateFilename(name); err != nil {
		return "", err
	}
	defer runtime.KeepAlive(d)

	for l := 128; ; l *= 2 {
		b := make([]byte, l)
		n, err := unix.Readlinkat(d.fd, name, b)
		if err != nil {
			return "", err
		}
		if n < l {
			return string(b[:n]), nil
		}
	}
}

func (d *localDirectory) Remove(name string) error {
	if err := validateFilename(name); err != nil {
		return err
	}
	defer runtime.KeepAlive(d)

	// First try deleting it as a regular file.
	err1 := unix.Unlinkat(d.fd, name, 0)
	if err1 == nil {
		return nil
	}
	// Then try to delete it as a directory.
	err2 := unix.Unlinkat(d.fd, name, unix.AT_REMOVEDIR)
	if err2 == nil {
		return nil
	}
	// Determine which error to return.
	if err1 != unix.EISDIR && err1 != unix.EPERM {
		return err1
	}
	return err2
}

func (d *localDirectory) RemoveAllChildren() error {
	defer runtime.KeepAlive(d)

	children, err := d.ReadDir()
	if err != nil {
		return err
	}
	for _, child := range children {
		name := child.Name()
		if child.Type() == FileTypeDirectory {
			// Build actions may leave directories behind with
			// degenerate permissions.
			if err := unix.Fchmodat(d.fd, name, 0o700, 0); err != nil {
				return err
			}
			subdirectory, err := d.enter(name)
			if err != nil {
				return err
			}
			err = subdirectory.RemoveAllChildren()
			subdirectory.Close()
			if err != nil {
				return err
			}
			if err := unix.Unlinkat(d.fd, name, unix.AT_REMOVEDIR); err != nil {
				return err
			}
		} else if err := unix.Unlinkat(d.fd, name, 0); err != nil {
			return err
		}
	}
	return nil
}

func (d *localDirectory) RemoveAll(name string) error {
	defer runtime.KeepAlive(d)

	if subdirectory, err := d.enter(name); err == nil {
		err := subdirectory.RemoveAllChildren()
		subdirectory.Close()
		if err != nil {
			return err
		}
		return unix.Unlinkat(d.fd, name, unix.AT_REMOVEDIR)
	} else if err == unix.ENOTDIR || err == unix.ELOOP {
		// Not a directory. Remove it immediately.
		return unix.Unlinkat(d.fd, name, 0)
	} else if os.IsNotExist(err) {
		return nil
	} else {
		return err
	}
}

func (d *localDirectory) Symlink(target, name string) error {
	if err := validateFilename(name); err != nil {
		return err
	}
	defer runtime.KeepAlive(d)

	return unix.Symlinkat(target, d.fd, name)
}

func (d *localDirectory) Chtimes(name string, atime, mtime time.Time) error {
	if err := validateFilename(name); err != nil {
		return err
	}
	defer runtime.KeepAlive(d)

	ts := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	return unix.UtimesNanoAt(d.fd, name, ts, unix.AT_SYMLINK_NOFOLLOW)
}
