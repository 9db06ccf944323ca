//go:build darwin

package global

import (
	"golang.org/x/sys/unix"
)

var resourceLimitNames = map[string]int{
	"AS":     unix.RLIMIT_AS,
	"CORE":   unix.RLIMIT_CORE,
	"CPU":    unix.RLIMIT_CPU,
	"DATA":   unix.RLIMIT_DATA,
	"FSIZE":  unix.RLIMIT_FSIZE,
	"NOFILE": unix.RLIMIT_NOFILE,
	"STACK":  unix.RLIMIT_STACK,
}

type resourceLimitValueType = uint64
