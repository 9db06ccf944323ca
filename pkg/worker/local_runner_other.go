//go:build unix && !linux

package worker

import (
	"syscall"
)

const networkIsolationSupported = false

func newSysProcAttr(isolateNetwork bool) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}
