//go:build !unix

package worker

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewLocalRunner creates a Runner that executes commands on the
// current system. On this operating system this functionality is not
// available.
func NewLocalRunner(isolateNetwork bool) (Runner, error) {
	return nil, status.Error(codes.Unimplemented, "Running commands is not supported on this platform")
}
