//go:build darwin || linux

package global

import (
	"golang.org/x/sys/unix"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func setUmask(umask uint32) error {
	unix.Umask(int(umask))
	return nil
}

func resourceLimitValue(limit *uint64) resourceLimitValueType {
	if limit == nil {
		return unix.RLIM_INFINITY
	}
	return resourceLimitValueType(*limit)
}

// setResourceLimit calls setrlimit(2) on the current process. Limits
// are inherited by the processes of actions spawned by workers.
func setResourceLimit(name string, resourceLimit *ResourceLimitConfiguration) error {
	resource, ok := resourceLimitNames[name]
	if !ok {
		return status.Error(codes.InvalidArgument, "Resource name is not supported by this operating system")
	}
	if err := unix.Setrlimit(resource, &unix.Rlimit{
		Cur: resourceLimitValue(resourceLimit.SoftLimit),
		Max: resourceLimitValue(resourceLimit.HardLimit),
	}); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}
