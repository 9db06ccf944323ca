//go:build !darwin && !linux

package global

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func setUmask(umask uint32) error {
	return status.Error(codes.Unimplemented, "Setting the umask is not supported on this operating system")
}

func setResourceLimit(name string, resourceLimit *ResourceLimitConfiguration) error {
	return status.Error(codes.Unimplemented, "Resource limits cannot be adjusted on this operating system")
}
