//go:build linux

package program

import (
	"log"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// relaunchIfPID1 relaunches the executable as a child process if the
// current process has PID 1, and propagates its termination status.
//
// Workers running inside a container as PID 1 inherit the orphaned
// descendants of the actions they execute. These need to be reaped by
// calling wait4() with PID -1, which cannot be done safely while
// os/exec waits for individual processes in the same process.
// https://github.com/golang/go/pull/61261
func relaunchIfPID1(currentPID int) {
	if currentPID != 1 {
		return
	}

	executable, err := os.Executable()
	if err != nil {
		log.Fatal("Failed to obtain path of current executable: ", err)
	}
	signal.Ignore(terminationSignals...)
	child, err := os.StartProcess(executable, os.Args, &os.ProcAttr{
		Env:   os.Environ(),
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	if err != nil {
		log.Fatal("Failed to relaunch current process: ", err)
	}

	for {
		var status unix.WaitStatus
		waitedPID, err := unix.Wait4(-1, &status, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			log.Fatal("Failed to wait for process termination: ", err)
		}
		if waitedPID == child.Pid {
			if status.Signaled() {
				terminateWithSignal(currentPID, status.Signal())
			}
			os.Exit(status.ExitStatus())
		}
	}
}
