//go:build unix

package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/buildbarn/bb-fleet/pkg/worker"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newRunRequest(t *testing.T, environmentVariables map[string]string, arguments ...string) *worker.RunRequest {
	buildDirectory := t.TempDir()
	return &worker.RunRequest{
		Arguments:            arguments,
		EnvironmentVariables: environmentVariables,
		WorkingDirectory:     buildDirectory,
		StdoutPath:           filepath.Join(buildDirectory, "stdout"),
		StderrPath:           filepath.Join(buildDirectory, "stderr"),
	}
}

func requireFileContents(t *testing.T, expected, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, expected, string(data))
}

func TestLocalRunner(t *testing.T) {
	runner, err := worker.NewLocalRunner(false)
	require.NoError(t, err)

	t.Run("ExitCode", func(t *testing.T) {
		request := newRunRequest(t, nil, "/bin/sh", "-c", "echo Hello; echo World >&2; exit 3")
		exitCode, err := runner.Run(context.Background(), request)
		require.NoError(t, err)
		require.Equal(t, 3, exitCode)
		requireFileContents(t, "Hello\n", request.StdoutPath)
		requireFileContents(t, "World\n", request.StderrPath)
	})

	t.Run("Signal", func(t *testing.T) {
		request := newRunRequest(t, nil, "/bin/sh", "-c", "kill -9 $$")
		exitCode, err := runner.Run(context.Background(), request)
		require.NoError(t, err)
		require.Equal(t, 137, exitCode)
	})

	t.Run("EnvironmentIsCleared", func(t *testing.T) {
		// Only the variables provided by the action should be
		// visible to the command.
		t.Setenv("BB_WORKER_SECRET", "leaked")
		request := newRunRequest(t, map[string]string{
			"GREETING": "Hello",
		}, "/bin/sh", "-c", "echo \"$GREETING $BB_WORKER_SECRET.\"")
		exitCode, err := runner.Run(context.Background(), request)
		require.NoError(t, err)
		require.Equal(t, 0, exitCode)
		requireFileContents(t, "Hello .\n", request.StdoutPath)
	})

	t.Run("WorkingDirectory", func(t *testing.T) {
		request := newRunRequest(t, nil, "/bin/sh", "-c", "echo Hello > file.txt")
		exitCode, err := runner.Run(context.Background(), request)
		require.NoError(t, err)
		require.Equal(t, 0, exitCode)
		requireFileContents(t, "Hello\n", filepath.Join(request.WorkingDirectory, "file.txt"))
	})

	t.Run("SearchPath", func(t *testing.T) {
		request := newRunRequest(t, map[string]string{
			"PATH": "/nonexistent:/bin:/usr/bin",
		}, "sh", "-c", "exit 0")
		exitCode, err := runner.Run(context.Background(), request)
		require.NoError(t, err)
		require.Equal(t, 0, exitCode)
	})

	t.Run("ExecutableNotFound", func(t *testing.T) {
		request := newRunRequest(t, map[string]string{
			"PATH": "/nonexistent",
		}, "sh", "-c", "exit 0")
		_, err := runner.Run(context.Background(), request)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Cannot find executable \"sh\" in search paths \"/nonexistent\""), err)
	})

	t.Run("NoArguments", func(t *testing.T) {
		_, err := runner.Run(context.Background(), newRunRequest(t, nil))
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Insufficient number of command arguments"), err)
	})

	t.Run("Timeout", func(t *testing.T) {
		// Processes running in the background should also be
		// terminated, as they hold on to the output files.
		request := newRunRequest(t, nil, "/bin/sh", "-c", "sleep 60 & sleep 60")
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := runner.Run(ctx, request)
		testutil.RequireEqualStatus(t, status.Error(codes.DeadlineExceeded, "context deadline exceeded"), err)
		require.Less(t, time.Since(start), 30*time.Second)
	})
}
