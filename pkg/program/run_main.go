package program

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// runMainErrorLogger logs every error returned by a routine, and
// initiates shutdown when the first one arrives.
type runMainErrorLogger struct {
	shutdownStarted sync.Once
	shutdownFunc    func()
	cancel          context.CancelFunc
}

func (el *runMainErrorLogger) Log(err error) {
	log.Print("Fatal error: ", err)
	el.startShutdown(func() {
		os.Exit(1)
	})
}

func (el *runMainErrorLogger) startShutdown(shutdownFunc func()) {
	el.shutdownStarted.Do(func() {
		el.shutdownFunc = shutdownFunc
		el.cancel()
	})
}

// terminateWithSignal terminates the current process by raising the
// signal that caused it to shut down, so that the parent process
// observes the original termination status.
func terminateWithSignal(currentPID int, terminationSignal os.Signal) {
	if runtime.GOOS == "windows" {
		os.Exit(1)
	}

	signal.Reset(terminationSignal)
	process, err := os.FindProcess(currentPID)
	if err != nil {
		panic(err)
	}
	if err := process.Signal(terminationSignal); err != nil {
		panic(err)
	}

	// Delivery of the signal is asynchronous, and signals sent to
	// the process group that are ignored by the process are not
	// reset. Exit explicitly if delivery does not terminate us.
	// https://github.com/golang/go/issues/19326
	time.Sleep(5 * time.Millisecond)
	os.Exit(1)
}

var terminationSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
}

// RunMain runs a program that supports graceful termination. The
// program consists of routines that may depend on each other, such as
// a scheduler's gRPC servers depending on its build queue's sweeper.
//
// The program exits with code 0 when all routines have terminated
// successfully, and with code 1 as soon as a routine fails. Upon
// receiving SIGINT or SIGTERM, all routines are canceled, respecting
// the dependencies between them, after which the process terminates
// with the same signal. A second signal terminates the process
// immediately, which allows an operator to abandon the execution of
// long running actions on a worker.
func RunMain(routine Routine) {
	currentPID := os.Getpid()
	relaunchIfPID1(currentPID)

	ctx, cancel := context.WithCancel(context.Background())
	errorLogger := &runMainErrorLogger{
		cancel: cancel,
	}

	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, terminationSignals...)
	go func() {
		receivedSignal := <-signalChan
		log.Printf("Received %#v signal. Initiating graceful shutdown.", receivedSignal.String())
		errorLogger.startShutdown(func() {
			terminateWithSignal(currentPID, receivedSignal)
		})

		receivedSignal = <-signalChan
		log.Printf("Received %#v signal during graceful shutdown. Terminating immediately.", receivedSignal.String())
		terminateWithSignal(currentPID, receivedSignal)
	}()

	run(ctx, errorLogger, routine)

	errorLogger.startShutdown(func() {
		os.Exit(0)
	})
	errorLogger.shutdownFunc()
}
