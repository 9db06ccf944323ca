package worker

import (
	"context"
)

// RunRequest contains the parameters of a single invocation of a build
// action's command.
type RunRequest struct {
	Arguments []string
	// Environment of the process. The environment of the worker
	// itself is never inherited.
	EnvironmentVariables map[string]string
	// Absolute path of the directory in which the command is run.
	WorkingDirectory string
	// Absolute paths of files to which the command's standard output
	// and standard error are written.
	StdoutPath string
	StderrPath string
}

// Runner launches the command of a build action, waiting for it to
// complete. When the context is cancelled, all processes spawned by the
// command are terminated.
type Runner interface {
	Run(ctx context.Context, request *RunRequest) (exitCode int, err error)
}
