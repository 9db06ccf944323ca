package builder

import (
	"context"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/protobuf/types/known/emptypb"
)

type authorizingBuildQueue struct {
	BuildQueue
	authorizer auth.Authorizer
}

// NewAuthorizingBuildQueue creates a decorator for BuildQueue that
// only permits clients to execute actions against instance names for
// which they are authorized. Requests that refer to existing
// operations are authorized against the instance name that is part of
// the operation name.
func NewAuthorizingBuildQueue(base BuildQueue, authorizer auth.Authorizer) BuildQueue {
	return &authorizingBuildQueue{
		BuildQueue: base,
		authorizer: authorizer,
	}
}

func (bq *authorizingBuildQueue) GetCapabilities(ctx context.Context, instanceName digest.InstanceName) (*remoteexecution.ServerCapabilities, error) {
	if err := auth.AuthorizeSingleInstanceName(ctx, bq.authorizer, instanceName); err != nil {
		return nil, util.StatusWrap(err, "Authorization")
	}
	return bq.BuildQueue.GetCapabilities(ctx, instanceName)
}

func (bq *authorizingBuildQueue) Execute(in *remoteexecution.ExecuteRequest, out remoteexecution.Execution_ExecuteServer) error {
	instanceName, err := digest.NewInstanceName(in.InstanceName)
	if err != nil {
		return util.StatusWrapf(err, "Invalid instance name %#v", in.InstanceName)
	}
	if err := auth.AuthorizeSingleInstanceName(out.Context(), bq.authorizer, instanceName); err != nil {
		return util.StatusWrapf(err, "Failed to authorize to Execute() against instance name %#v", instanceName.String())
	}
	return bq.BuildQueue.Execute(in, out)
}

func (bq *authorizingBuildQueue) authorizeOperation(ctx context.Context, method, operationName string) error {
	instanceName, err := GetOperationInstanceName(operationName)
	if err != nil {
		return err
	}
	if err := auth.AuthorizeSingleInstanceName(ctx, bq.authorizer, instanceName); err != nil {
		return util.StatusWrapf(err, "Failed to authorize to %s() against instance name %#v", method, instanceName.String())
	}
	return nil
}

func (bq *authorizingBuildQueue) WaitExecution(in *remoteexecution.WaitExecutionRequest, out remoteexecution.Execution_WaitExecutionServer) error {
	if err := bq.authorizeOperation(out.Context(), "WaitExecution", in.Name); err != nil {
		return err
	}
	return bq.BuildQueue.WaitExecution(in, out)
}

func (bq *authorizingBuildQueue) GetOperation(ctx context.Context, in *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	if err := bq.authorizeOperation(ctx, "GetOperation", in.Name); err != nil {
		return nil, err
	}
	return bq.BuildQueue.GetOperation(ctx, in)
}

func (bq *authorizingBuildQueue) CancelOperation(ctx context.Context, in *longrunningpb.CancelOperationRequest) (*emptypb.Empty, error) {
	if err := bq.authorizeOperation(ctx, "CancelOperation", in.Name); err != nil {
		return nil, err
	}
	return bq.BuildQueue.CancelOperation(ctx, in)
}

func (bq *authorizingBuildQueue) WaitOperation(ctx context.Context, in *longrunningpb.WaitOperationRequest) (*longrunningpb.Operation, error) {
	if err := bq.authorizeOperation(ctx, "WaitOperation", in.Name); err != nil {
		return nil, err
	}
	return bq.BuildQueue.WaitOperation(ctx, in)
}
