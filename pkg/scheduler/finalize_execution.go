package scheduler

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// isInfrastructureFailure returns whether an execution that failed with
// a given code should be attempted again.
func isInfrastructureFailure(code codes.Code) bool {
	return code == codes.Unavailable || code == codes.Internal || code == codes.Aborted
}

// finalizeExecution validates the outcome of an execution reported by
// a worker, and stores its action result in the Action Cache if
// permitted. An error is returned if the task needs to be retried.
func (bq *InMemoryBuildQueue) finalizeExecution(ctx context.Context, t *task, executeResponse *remoteexecution.ExecuteResponse) (*remoteexecution.ExecuteResponse, error) {
	if code := status.FromProto(executeResponse.Status).Code(); isInfrastructureFailure(code) {
		return nil, status.ErrorProto(executeResponse.Status)
	} else if code != codes.OK {
		// Timeouts and failures caused by the action itself are
		// returned to the client as is, and never cached.
		return &remoteexecution.ExecuteResponse{
			Result:  executeResponse.Result,
			Status:  executeResponse.Status,
			Message: executeResponse.Message,
		}, nil
	}
	if executeResponse.Result == nil {
		return nil, status.Error(codes.Internal, "Worker did not provide an action result")
	}

	actionResult := proto.Clone(executeResponse.Result).(*remoteexecution.ActionResult)
	digestFunction := t.actionDigest.GetDigestFunction()
	outputs := digest.NewSetBuilder()

	// Store outputs that were provided inline.
	for _, inline := range []struct {
		name   string
		data   []byte
		digest **remoteexecution.Digest
	}{
		{"standard output", actionResult.StdoutRaw, &actionResult.StdoutDigest},
		{"standard error", actionResult.StderrRaw, &actionResult.StderrDigest},
	} {
		if len(inline.data) > 0 && *inline.digest == nil {
			blobDigest := digestFunction.Compute(inline.data)
			if err := bq.contentAddressableStorage.Put(ctx, blobDigest, buffer.NewValidatedBufferFromByteSlice(inline.data)); err != nil {
				return nil, util.StatusWrapfWithCode(err, codes.Unavailable, "Failed to store %s", inline.name)
			}
			*inline.digest = blobDigest.GetProto()
		}
	}
	for _, outputFile := range actionResult.OutputFiles {
		if len(outputFile.Contents) == 0 {
			continue
		}
		if outputFile.Digest == nil {
			outputFile.Digest = digestFunction.Compute(outputFile.Contents).GetProto()
		}
		fileDigest, err := digestFunction.NewDigestFromProto(outputFile.Digest)
		if err != nil {
			return nil, util.StatusWrapfWithCode(err, codes.Internal, "Invalid digest for output file %#v", outputFile.Path)
		}
		if err := bq.contentAddressableStorage.Put(ctx, fileDigest, buffer.NewCASBufferFromByteSlice(fileDigest, outputFile.Contents, buffer.UserProvided)); err != nil {
			return nil, util.StatusWrapfWithCode(err, codes.Unavailable, "Failed to store output file %#v", outputFile.Path)
		}
	}

	// All outputs need to be present in the Content Addressable
	// Storage before the action result can be cached.
	for _, outputFile := range actionResult.OutputFiles {
		fileDigest, err := digestFunction.NewDigestFromProto(outputFile.Digest)
		if err != nil {
			return nil, util.StatusWrapfWithCode(err, codes.Internal, "Invalid digest for output file %#v", outputFile.Path)
		}
		outputs.Add(fileDigest)
	}
	for _, outputDirectory := range actionResult.OutputDirectories {
		treeDigest, err := digestFunction.NewDigestFromProto(outputDirectory.TreeDigest)
		if err != nil {
			return nil, util.StatusWrapfWithCode(err, codes.Internal, "Invalid digest for output directory %#v", outputDirectory.Path)
		}
		outputs.Add(treeDigest)
	}
	for _, logDigest := range []*remoteexecution.Digest{actionResult.StdoutDigest, actionResult.StderrDigest} {
		if logDigest != nil {
			blobDigest, err := digestFunction.NewDigestFromProto(logDigest)
			if err != nil {
				return nil, util.StatusWrapWithCode(err, codes.Internal, "Invalid digest for standard output or standard error")
			}
			outputs.Add(blobDigest)
		}
	}
	missing, err := bq.contentAddressableStorage.FindMissing(ctx, outputs.Build().RemoveEmptyBlob())
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Unavailable, "Failed to determine existence of outputs")
	}
	if !missing.Empty() {
		first, _ := missing.First()
		return nil, status.Errorf(codes.Unavailable, "%d output blob(s) are not present in the Content Addressable Storage, including %s", missing.Length(), first)
	}

	// Clients that cancelled their operations while the result was
	// being validated did not ask for the action result to be cached.
	bq.lock.Lock()
	abandoned := t.waiters == 0
	bq.lock.Unlock()
	if !abandoned && !t.action.DoNotCache && (actionResult.ExitCode == 0 || bq.settings.cacheFailedActions) {
		if err := bq.actionCache.Put(ctx, t.actionDigest, buffer.NewProtoBufferFromProto(actionResult, buffer.UserProvided)); err != nil {
			bq.errorLogger.Log(util.StatusWrapf(err, "Failed to store action result for action %#v", t.actionDigest.String()))
		}
	}
	return &remoteexecution.ExecuteResponse{
		Result:  actionResult,
		Status:  executeResponse.Status,
		Message: executeResponse.Message,
	}, nil
}
