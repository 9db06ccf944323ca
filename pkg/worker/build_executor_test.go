//go:build unix

package worker_test

import (
	"context"
	"testing"
	"time"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/local"
	"github.com/buildbarn/bb-fleet/pkg/cas"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/buildbarn/bb-fleet/pkg/worker"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

var digestFunction = digest.MustNewFunction("main", remoteexecution.DigestFunction_SHA256)

type buildExecutorEnvironment struct {
	blobAccess    blobstore.BlobAccess
	buildExecutor worker.BuildExecutor
}

func newBuildExecutorEnvironment(t *testing.T) *buildExecutorEnvironment {
	blobAccess := local.NewLocalBlobAccess(
		digest.KeyWithoutInstance,
		blobstore.CASReadBufferFactory,
		1,
		1<<20,
		func() eviction.Set[string] { return eviction.NewLRUSet[string]() },
		"build_executor_test")
	buildDirectoryPath := t.TempDir()
	buildDirectory, err := filesystem.NewLocalDirectory(buildDirectoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { buildDirectory.Close() })
	runner, err := worker.NewLocalRunner(false)
	require.NoError(t, err)

	return &buildExecutorEnvironment{
		blobAccess: blobAccess,
		buildExecutor: worker.NewLocalBuildExecutor(
			cas.NewBlobAccessContentAddressableStorage(blobAccess, 1<<20),
			buildDirectory,
			buildDirectoryPath,
			runner,
			clock.SystemClock,
			"worker-1",
			4),
	}
}

func (env *buildExecutorEnvironment) putBlob(t *testing.T, data []byte) digest.Digest {
	blobDigest := digestFunction.Compute(data)
	require.NoError(t, env.blobAccess.Put(context.Background(), blobDigest, buffer.NewValidatedBufferFromByteSlice(data)))
	return blobDigest
}

func (env *buildExecutorEnvironment) putMessage(t *testing.T, m proto.Message) digest.Digest {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	require.NoError(t, err)
	return env.putBlob(t, data)
}

func (env *buildExecutorEnvironment) requireBlob(t *testing.T, expected []byte, blobDigest *remoteexecution.Digest) {
	t.Helper()
	d, err := digestFunction.NewDigestFromProto(blobDigest)
	require.NoError(t, err)
	data, err := env.blobAccess.Get(context.Background(), d).ToByteSlice(1 << 20)
	require.NoError(t, err)
	require.Equal(t, expected, data)
}

// newTask stores an action whose input root contains a file named
// "input.txt" and a directory named "scripts" with an executable shell
// script.
func (env *buildExecutorEnvironment) newTask(t *testing.T, command *remoteexecution.Command, timeout time.Duration) *remoteworker.DesiredTask {
	scriptDigest := env.putBlob(t, []byte("#!/bin/sh\necho \"Hello from $0\"\n"))
	scriptsDigest := env.putMessage(t, &remoteexecution.Directory{
		Files: []*remoteexecution.FileNode{
			{Name: "greet.sh", Digest: scriptDigest.GetProto(), IsExecutable: true},
		},
	})
	inputDigest := env.putBlob(t, []byte("Hello"))
	inputRootDigest := env.putMessage(t, &remoteexecution.Directory{
		Files: []*remoteexecution.FileNode{
			{Name: "input.txt", Digest: inputDigest.GetProto()},
		},
		Directories: []*remoteexecution.DirectoryNode{
			{Name: "scripts", Digest: scriptsDigest.GetProto()},
		},
	})
	commandDigest := env.putMessage(t, command)
	action := &remoteexecution.Action{
		CommandDigest:   commandDigest.GetProto(),
		InputRootDigest: inputRootDigest.GetProto(),
	}
	actionDigest := env.putMessage(t, action)
	return &remoteworker.DesiredTask{
		TaskID:         "task-1",
		InstanceName:   "main",
		DigestFunction: remoteexecution.DigestFunction_SHA256,
		ActionDigest:   remoteworker.NewMessage(actionDigest.GetProto()),
		Action:         remoteworker.NewMessage(action),
		Timeout:        util.Duration{Duration: timeout},
	}
}

func TestLocalBuildExecutorSuccess(t *testing.T) {
	env := newBuildExecutorEnvironment(t)
	task := env.newTask(t, &remoteexecution.Command{
		Arguments: []string{
			"/bin/sh", "-c",
			"cp ../input.txt out/copy.txt && mkdir out/dir && echo Nested > out/dir/nested.txt && ln -s copy.txt out/link && ../scripts/greet.sh && echo Failure >&2 && exit 1",
		},
		WorkingDirectory: "wd",
		OutputPaths:      []string{"out/copy.txt", "out/dir", "out/link", "out/missing"},
	}, time.Minute)

	response := env.buildExecutor.Execute(context.Background(), task)
	require.Equal(t, codes.OK, status.FromProto(response.Status).Code())
	result := response.Result
	require.Equal(t, int32(1), result.ExitCode)
	require.Equal(t, "worker-1", result.ExecutionMetadata.Worker)
	require.NotNil(t, result.ExecutionMetadata.WorkerCompletedTimestamp)

	// Standard output and standard error are captured.
	env.requireBlob(t, []byte("Hello from ../scripts/greet.sh\n"), result.StdoutDigest)
	env.requireBlob(t, []byte("Failure\n"), result.StderrDigest)

	// Output files, directories and symbolic links are captured.
	// Outputs that were not created are omitted.
	require.Len(t, result.OutputFiles, 1)
	testutil.RequireEqualProto(t, &remoteexecution.OutputFile{
		Path:   "out/copy.txt",
		Digest: digestFunction.Compute([]byte("Hello")).GetProto(),
	}, result.OutputFiles[0])
	env.requireBlob(t, []byte("Hello"), result.OutputFiles[0].Digest)

	require.Len(t, result.OutputSymlinks, 1)
	testutil.RequireEqualProto(t, &remoteexecution.OutputSymlink{
		Path:   "out/link",
		Target: "copy.txt",
	}, result.OutputSymlinks[0])

	require.Len(t, result.OutputDirectories, 1)
	require.Equal(t, "out/dir", result.OutputDirectories[0].Path)
	treeDigest, err := digestFunction.NewDigestFromProto(result.OutputDirectories[0].TreeDigest)
	require.NoError(t, err)
	tree, err := env.blobAccess.Get(context.Background(), treeDigest).ToProto(&remoteexecution.Tree{}, 1<<20)
	require.NoError(t, err)
	testutil.RequireEqualProto(t, &remoteexecution.Tree{
		Root: &remoteexecution.Directory{
			Files: []*remoteexecution.FileNode{
				{Name: "nested.txt", Digest: digestFunction.Compute([]byte("Nested\n")).GetProto()},
			},
		},
	}, tree)
	env.requireBlob(t, []byte("Nested\n"), tree.(*remoteexecution.Tree).Root.Files[0].Digest)
}

func TestLocalBuildExecutorRepeatedExecution(t *testing.T) {
	// Every execution should start with a clean build directory.
	env := newBuildExecutorEnvironment(t)
	task := env.newTask(t, &remoteexecution.Command{
		Arguments:   []string{"/bin/sh", "-c", "test ! -e out.txt && echo Hello > out.txt"},
		OutputFiles: []string{"out.txt"},
	}, time.Minute)

	for i := 0; i < 2; i++ {
		response := env.buildExecutor.Execute(context.Background(), task)
		require.Equal(t, codes.OK, status.FromProto(response.Status).Code())
		require.Equal(t, int32(0), response.Result.ExitCode)
		require.Len(t, response.Result.OutputFiles, 1)
	}
}

func TestLocalBuildExecutorTimeout(t *testing.T) {
	env := newBuildExecutorEnvironment(t)
	task := env.newTask(t, &remoteexecution.Command{
		Arguments: []string{"/bin/sh", "-c", "echo Started; sleep 60"},
	}, 100*time.Millisecond)

	response := env.buildExecutor.Execute(context.Background(), task)
	testutil.RequireEqualStatus(
		t,
		status.Error(codes.DeadlineExceeded, "Command exceeded its timeout of 100ms"),
		status.ErrorProto(response.Status))
	// Output written before the timeout is still returned.
	env.requireBlob(t, []byte("Started\n"), response.Result.StdoutDigest)
}

func TestLocalBuildExecutorFailures(t *testing.T) {
	t.Run("MissingInputFile", func(t *testing.T) {
		env := newBuildExecutorEnvironment(t)
		inputRootDigest := env.putMessage(t, &remoteexecution.Directory{
			Files: []*remoteexecution.FileNode{
				{Name: "input.txt", Digest: digestFunction.Compute([]byte("Absent")).GetProto()},
			},
		})
		commandDigest := env.putMessage(t, &remoteexecution.Command{
			Arguments: []string{"/bin/true"},
		})
		action := &remoteexecution.Action{
			CommandDigest:   commandDigest.GetProto(),
			InputRootDigest: inputRootDigest.GetProto(),
		}
		response := env.buildExecutor.Execute(context.Background(), &remoteworker.DesiredTask{
			InstanceName:   "main",
			DigestFunction: remoteexecution.DigestFunction_SHA256,
			ActionDigest:   remoteworker.NewMessage(env.putMessage(t, action).GetProto()),
			Action:         remoteworker.NewMessage(action),
		})
		testutil.RequirePrefixedStatus(
			t,
			status.Error(codes.Unavailable, "Failed to materialize input root: Failed to obtain input file \"input.txt\": "),
			status.ErrorProto(response.Status))
	})

	t.Run("MissingCommand", func(t *testing.T) {
		env := newBuildExecutorEnvironment(t)
		action := &remoteexecution.Action{
			CommandDigest:   digestFunction.Compute([]byte("Absent")).GetProto(),
			InputRootDigest: digestFunction.GetEmptyDigest().GetProto(),
		}
		response := env.buildExecutor.Execute(context.Background(), &remoteworker.DesiredTask{
			InstanceName:   "main",
			DigestFunction: remoteexecution.DigestFunction_SHA256,
			ActionDigest:   remoteworker.NewMessage(env.putMessage(t, action).GetProto()),
			Action:         remoteworker.NewMessage(action),
		})
		testutil.RequirePrefixedStatus(
			t,
			status.Error(codes.Unavailable, "Failed to obtain command: "),
			status.ErrorProto(response.Status))
	})

	t.Run("OutputOutsideInputRoot", func(t *testing.T) {
		env := newBuildExecutorEnvironment(t)
		task := env.newTask(t, &remoteexecution.Command{
			Arguments:   []string{"/bin/true"},
			OutputFiles: []string{"../escape.txt"},
		}, time.Minute)
		response := env.buildExecutor.Execute(context.Background(), task)
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.InvalidArgument, "Output path \"../escape.txt\" resolves to a location outside the input root"),
			status.ErrorProto(response.Status))
	})

	t.Run("Cancellation", func(t *testing.T) {
		env := newBuildExecutorEnvironment(t)
		task := env.newTask(t, &remoteexecution.Command{
			Arguments: []string{"/bin/sh", "-c", "sleep 60"},
		}, time.Minute)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		response := env.buildExecutor.Execute(ctx, task)
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.DeadlineExceeded, "context deadline exceeded"),
			status.ErrorProto(response.Status))
	})
}
