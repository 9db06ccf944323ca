//go:build linux

package worker

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const networkIsolationSupported = true

func newSysProcAttr(isolateNetwork bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Setpgid: true,
	}
	if isolateNetwork {
		attr.Cloneflags = unix.CLONE_NEWNET
	}
	return attr
}
