package grpcclients

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type acBlobAccess struct {
	actionCacheClient       remoteexecution.ActionCacheClient
	maximumMessageSizeBytes int
}

// NewACBlobAccess creates a BlobAccess handle that relays any requests
// to a gRPC service that implements the remoteexecution.ActionCache
// service.
func NewACBlobAccess(client grpc.ClientConnInterface, maximumMessageSizeBytes int) blobstore.BlobAccess {
	return &acBlobAccess{
		actionCacheClient:       remoteexecution.NewActionCacheClient(client),
		maximumMessageSizeBytes: maximumMessageSizeBytes,
	}
}

func (ba *acBlobAccess) Get(ctx context.Context, actionDigest digest.Digest) buffer.Buffer {
	digestFunction := actionDigest.GetDigestFunction()
	actionResult, err := ba.actionCacheClient.GetActionResult(ctx, &remoteexecution.GetActionResultRequest{
		InstanceName:   digestFunction.GetInstanceName().String(),
		ActionDigest:   actionDigest.GetProto(),
		DigestFunction: digestFunction.GetEnumValue(),
	})
	if err != nil {
		return buffer.NewBufferFromError(err)
	}
	return buffer.NewProtoBufferFromProto(actionResult, buffer.BackendProvided(buffer.Irreparable(actionDigest)))
}

func (ba *acBlobAccess) Put(ctx context.Context, actionDigest digest.Digest, b buffer.Buffer) error {
	actionResult, err := b.ToProto(&remoteexecution.ActionResult{}, ba.maximumMessageSizeBytes)
	if err != nil {
		return err
	}
	digestFunction := actionDigest.GetDigestFunction()
	_, err = ba.actionCacheClient.UpdateActionResult(ctx, &remoteexecution.UpdateActionResultRequest{
		InstanceName:   digestFunction.GetInstanceName().String(),
		ActionDigest:   actionDigest.GetProto(),
		ActionResult:   actionResult.(*remoteexecution.ActionResult),
		DigestFunction: digestFunction.GetEnumValue(),
	})
	return err
}

func (ba *acBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	return digest.EmptySet, status.Error(codes.Unimplemented, "The Action Cache does not support bulk existence checking")
}

// Delete is a no-op. The remote Action Cache invalidates incomplete
// entries by itself when they are read.
func (ba *acBlobAccess) Delete(ctx context.Context, actionDigest digest.Digest) error {
	return nil
}
