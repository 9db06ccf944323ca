package worker

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/cas"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// BuildExecutor executes a task handed out by the scheduler. Errors are
// reported through ExecuteResponse.status. A status with code
// UNAVAILABLE indicates an infrastructure failure, meaning the task
// may be retried by another worker.
type BuildExecutor interface {
	Execute(ctx context.Context, task *remoteworker.DesiredTask) *remoteexecution.ExecuteResponse
}

type localBuildExecutor struct {
	contentAddressableStorage cas.ContentAddressableStorage
	buildDirectory            filesystem.Directory
	buildDirectoryPath        string
	runner                    Runner
	clock                     clock.Clock
	workerID                  string
	transferConcurrency       int
}

// NewLocalBuildExecutor creates a BuildExecutor that runs build actions
// on the current system. Every execution starts with an empty build
// directory, into which the input root is placed in a subdirectory
// named "root". The command's standard output and standard error are
// written to files next to it.
func NewLocalBuildExecutor(contentAddressableStorage cas.ContentAddressableStorage, buildDirectory filesystem.Directory, buildDirectoryPath string, runner Runner, clock clock.Clock, workerID string, transferConcurrency int) BuildExecutor {
	return &localBuildExecutor{
		contentAddressableStorage: contentAddressableStorage,
		buildDirectory:            buildDirectory,
		buildDirectoryPath:        buildDirectoryPath,
		runner:                    runner,
		clock:                     clock,
		workerID:                  workerID,
		transferConcurrency:       transferConcurrency,
	}
}

func setResponseError(response *remoteexecution.ExecuteResponse, err error) *remoteexecution.ExecuteResponse {
	response.Status = status.Convert(err).Proto()
	return response
}

// createDirectories creates a directory and its parents in the input
// root. Directories that already exist are left alone.
func createDirectories(inputRoot filesystem.Directory, components []string) error {
	var directory filesystem.DirectoryCloser
	current := inputRoot
	defer func() {
		if directory != nil {
			directory.Close()
		}
	}()
	for _, component := range components {
		if err := current.Mkdir(component, 0o777); err != nil && !os.IsExist(err) {
			return err
		}
		child, err := current.EnterDirectory(component)
		if err != nil {
			return err
		}
		if directory != nil {
			directory.Close()
		}
		directory = child
		current = child
	}
	return nil
}

// splitInputRootPath splits a path relative to the input root into its
// components, rejecting paths that escape the input root.
func splitInputRootPath(workingDirectory, p string) ([]string, bool) {
	fullPath := path.Clean(path.Join(workingDirectory, p))
	if path.IsAbs(p) || fullPath == ".." || strings.HasPrefix(fullPath, "../") {
		return nil, false
	}
	if fullPath == "." {
		return nil, true
	}
	return strings.Split(fullPath, "/"), true
}

func (be *localBuildExecutor) Execute(ctx context.Context, task *remoteworker.DesiredTask) *remoteexecution.ExecuteResponse {
	executionMetadata := &remoteexecution.ExecutedActionMetadata{
		Worker:               be.workerID,
		WorkerStartTimestamp: timestamppb.New(be.clock.Now()),
	}
	actionResult := &remoteexecution.ActionResult{
		ExecutionMetadata: executionMetadata,
	}
	response := &remoteexecution.ExecuteResponse{
		Result: actionResult,
	}

	instanceName, err := digest.NewInstanceName(task.InstanceName)
	if err != nil {
		return setResponseError(response, util.StatusWrapf(err, "Invalid instance name %#v", task.InstanceName))
	}
	digestFunction, err := instanceName.GetDigestFunction(task.DigestFunction, len(task.ActionDigest.Value.GetHash()))
	if err != nil {
		return setResponseError(response, err)
	}
	action := task.Action.Value
	if action == nil {
		return setResponseError(response, status.Error(codes.InvalidArgument, "Task does not contain an action"))
	}
	commandDigest, err := digestFunction.NewDigestFromProto(action.CommandDigest)
	if err != nil {
		return setResponseError(response, util.StatusWrap(err, "Failed to extract digest for command"))
	}
	inputRootDigest, err := digestFunction.NewDigestFromProto(action.InputRootDigest)
	if err != nil {
		return setResponseError(response, util.StatusWrap(err, "Failed to extract digest for input root"))
	}
	command, err := be.contentAddressableStorage.GetCommand(ctx, commandDigest)
	if err != nil {
		return setResponseError(response, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to obtain command"))
	}

	// Set up the build directory.
	if err := be.buildDirectory.RemoveAllChildren(); err != nil {
		return setResponseError(response, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to clean build directory"))
	}
	if err := be.buildDirectory.Mkdir("root", 0o777); err != nil {
		return setResponseError(response, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to create input root directory"))
	}
	inputRoot, err := be.buildDirectory.EnterDirectory("root")
	if err != nil {
		return setResponseError(response, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to enter input root directory"))
	}
	defer inputRoot.Close()

	executionMetadata.InputFetchStartTimestamp = timestamppb.New(be.clock.Now())
	if err := materializeInputRoot(ctx, be.contentAddressableStorage, inputRootDigest, inputRoot, be.transferConcurrency); err != nil {
		return setResponseError(response, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to materialize input root"))
	}
	// Create the working directory and the parent directories of
	// outputs, as build actions may assume these exist.
	workingDirectoryComponents, ok := splitInputRootPath("", command.WorkingDirectory)
	if !ok {
		return setResponseError(response, status.Errorf(codes.InvalidArgument, "Working directory %#v resolves to a location outside the input root", command.WorkingDirectory))
	}
	if err := createDirectories(inputRoot, workingDirectoryComponents); err != nil {
		return setResponseError(response, util.StatusWrap(err, "Failed to create working directory"))
	}
	outputPaths := command.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = append(append([]string(nil), command.OutputFiles...), command.OutputDirectories...)
	}
	for _, outputPath := range outputPaths {
		components, ok := splitInputRootPath(command.WorkingDirectory, outputPath)
		if !ok || len(components) == 0 {
			return setResponseError(response, status.Errorf(codes.InvalidArgument, "Output path %#v resolves to a location outside the input root", outputPath))
		}
		if err := createDirectories(inputRoot, components[:len(components)-1]); err != nil {
			return setResponseError(response, util.StatusWrapf(err, "Failed to create parent directory of output %#v", outputPath))
		}
	}
	executionMetadata.InputFetchCompletedTimestamp = timestamppb.New(be.clock.Now())

	// Run the command, enforcing the timeout of the action.
	environmentVariables := make(map[string]string, len(command.EnvironmentVariables))
	for _, environmentVariable := range command.EnvironmentVariables {
		environmentVariables[environmentVariable.Name] = environmentVariable.Value
	}
	executionMetadata.ExecutionStartTimestamp = timestamppb.New(be.clock.Now())
	var runCtx context.Context
	var cancel context.CancelFunc
	if task.Timeout.Duration > 0 {
		runCtx, cancel = be.clock.NewContextWithTimeout(ctx, task.Timeout.Duration)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	exitCode, runErr := be.runner.Run(runCtx, &RunRequest{
		Arguments:            command.Arguments,
		EnvironmentVariables: environmentVariables,
		WorkingDirectory:     filepath.Join(be.buildDirectoryPath, "root", filepath.FromSlash(command.WorkingDirectory)),
		StdoutPath:           filepath.Join(be.buildDirectoryPath, "stdout"),
		StderrPath:           filepath.Join(be.buildDirectoryPath, "stderr"),
	})
	timedOut := runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil
	cancel()
	executionMetadata.ExecutionCompletedTimestamp = timestamppb.New(be.clock.Now())
	if ctx.Err() != nil {
		return setResponseError(response, util.StatusFromContext(ctx))
	}

	// Capture the outputs. Standard output and standard error are
	// also captured if the command failed, as they may explain why.
	executionMetadata.OutputUploadStartTimestamp = timestamppb.New(be.clock.Now())
	uploader := newOutputUploader(be.contentAddressableStorage, digestFunction)
	defer uploader.Close()
	for _, log := range []struct {
		name   string
		digest **remoteexecution.Digest
	}{
		{"stdout", &actionResult.StdoutDigest},
		{"stderr", &actionResult.StderrDigest},
	} {
		logDigest, err := uploader.addFile(be.buildDirectory, log.name)
		if err == nil {
			*log.digest = logDigest.GetProto()
		} else if !os.IsNotExist(err) {
			return setResponseError(response, util.StatusWrapfWithCode(err, codes.Unavailable, "Failed to digest %s", log.name))
		}
	}
	if runErr == nil {
		actionResult.ExitCode = int32(exitCode)
		if err := uploader.addOutputs(inputRoot, command, actionResult); err != nil {
			return setResponseError(response, err)
		}
	} else if timedOut {
		response.Status = status.Newf(codes.DeadlineExceeded, "Command exceeded its timeout of %s", task.Timeout.Duration).Proto()
	} else {
		response.Status = status.Convert(runErr).Proto()
	}
	if err := uploader.upload(ctx, be.transferConcurrency); err != nil {
		return setResponseError(response, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to upload outputs"))
	}
	executionMetadata.OutputUploadCompletedTimestamp = timestamppb.New(be.clock.Now())
	executionMetadata.WorkerCompletedTimestamp = timestamppb.New(be.clock.Now())
	return response
}
