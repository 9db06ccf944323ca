package scheduler

import (
	"context"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"

	"google.golang.org/protobuf/types/known/emptypb"
)

// The google.longrunning.Operations service permits clients to inspect
// and cancel operations without keeping an Execute() or
// WaitExecution() stream open. Listing and deleting operations is not
// supported.

// GetOperation returns the current state of an operation.
func (bq *InMemoryBuildQueue) GetOperation(ctx context.Context, in *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	o, err := bq.getOperation(in.Name)
	if err != nil {
		return nil, err
	}
	bq.lock.Lock()
	defer bq.lock.Unlock()
	return bq.getOperationMessageLocked(o)
}

// CancelOperation detaches a client from the task underlying an
// operation. See cancelOperation().
func (bq *InMemoryBuildQueue) CancelOperation(ctx context.Context, in *longrunningpb.CancelOperationRequest) (*emptypb.Empty, error) {
	if err := bq.cancelOperation(in.Name); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// WaitOperation blocks until an operation is done, or until the
// provided timeout is reached. It returns the latest state of the
// operation.
func (bq *InMemoryBuildQueue) WaitOperation(ctx context.Context, in *longrunningpb.WaitOperationRequest) (*longrunningpb.Operation, error) {
	o, err := bq.getOperation(in.Name)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx
	if in.Timeout != nil {
		var cancel context.CancelFunc
		waitCtx, cancel = bq.clock.NewContextWithTimeout(ctx, in.Timeout.AsDuration())
		defer cancel()
	}
	var latest *longrunningpb.Operation
	if err := bq.streamOperation(waitCtx, o, func(operation *longrunningpb.Operation) error {
		latest = operation
		return nil
	}); err != nil && (latest == nil || ctx.Err() != nil) {
		return nil, err
	}
	return latest, nil
}
