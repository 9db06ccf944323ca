//go:build unix

package worker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/buildbarn/bb-fleet/pkg/util"

	"golang.org/x/sys/unix"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type localRunner struct {
	isolateNetwork bool
}

// NewLocalRunner creates a Runner that executes commands on the
// current system. Every command is placed in its own process group, so
// that all of its processes can be killed when the action is cancelled
// or times out. If requested, commands are run in an empty network
// namespace.
func NewLocalRunner(isolateNetwork bool) (Runner, error) {
	if isolateNetwork && !networkIsolationSupported {
		return nil, status.Error(codes.Unimplemented, "Network isolation is not supported on this platform")
	}
	return &localRunner{
		isolateNetwork: isolateNetwork,
	}, nil
}

// lookPath resolves the path of the executable of a command. Relative
// paths are resolved against the working directory, while bare names
// are searched for in the PATH provided by the action.
func lookPath(argv0, workingDirectory string, environmentVariables map[string]string) (string, error) {
	if strings.ContainsRune(argv0, '/') {
		if filepath.IsAbs(argv0) {
			return argv0, nil
		}
		return filepath.Join(workingDirectory, argv0), nil
	}
	for _, directory := range filepath.SplitList(environmentVariables["PATH"]) {
		if !filepath.IsAbs(directory) {
			directory = filepath.Join(workingDirectory, directory)
		}
		candidate := filepath.Join(directory, argv0)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}
	return "", status.Errorf(codes.InvalidArgument, "Cannot find executable %#v in search paths %#v", argv0, environmentVariables["PATH"])
}

func openOutputFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o666)
}

func (r *localRunner) Run(ctx context.Context, request *RunRequest) (int, error) {
	if len(request.Arguments) == 0 {
		return 0, status.Error(codes.InvalidArgument, "Insufficient number of command arguments")
	}
	path, err := lookPath(request.Arguments[0], request.WorkingDirectory, request.EnvironmentVariables)
	if err != nil {
		return 0, err
	}

	environment := make([]string, 0, len(request.EnvironmentVariables))
	for name, value := range request.EnvironmentVariables {
		environment = append(environment, name+"="+value)
	}
	sort.Strings(environment)

	stdout, err := openOutputFile(request.StdoutPath)
	if err != nil {
		return 0, util.StatusWrapWithCode(err, codes.Internal, "Failed to open standard output file")
	}
	defer stdout.Close()
	stderr, err := openOutputFile(request.StderrPath)
	if err != nil {
		return 0, util.StatusWrapWithCode(err, codes.Internal, "Failed to open standard error file")
	}
	defer stderr.Close()

	cmd := &exec.Cmd{
		Path:        path,
		Args:        request.Arguments,
		Env:         environment,
		Dir:         request.WorkingDirectory,
		Stdout:      stdout,
		Stderr:      stderr,
		SysProcAttr: newSysProcAttr(r.isolateNetwork),
	}
	if err := cmd.Start(); err != nil {
		return 0, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to start process")
	}

	// Kill the entire process group when the context is done, so
	// that background processes spawned by the command don't
	// outlive it.
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()
	select {
	case err = <-waitErr:
	case <-ctx.Done():
		unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		<-waitErr
		return 0, util.StatusFromContext(ctx)
	}
	// Clean up processes that were left behind in the background.
	unix.Kill(-cmd.Process.Pid, unix.SIGKILL)

	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return 0, util.StatusWrapWithCode(err, codes.Internal, "Failed to wait for process")
		}
	}
	waitStatus := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if waitStatus.Signaled() {
		// Follow the convention of shells.
		return 128 + int(waitStatus.Signal()), nil
	}
	return waitStatus.ExitStatus(), nil
}
