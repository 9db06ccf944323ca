//go:build !unix

package filesystem

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewLocalDirectory is not available on this operating system. Workers
// and the construction of input roots from local directories therefore
// require a UNIX-like operating system.
func NewLocalDirectory(path string) (DirectoryCloser, error) {
	return nil, status.Errorf(codes.Unimplemented, "Cannot open directory %#v: Local file system access is not supported on this platform", path)
}
