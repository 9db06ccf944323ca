//go:build !linux

package program

// relaunchIfPID1 only needs to take action on Linux, where containers
// commonly launch the program as PID 1.
func relaunchIfPID1(currentPID int) {}
