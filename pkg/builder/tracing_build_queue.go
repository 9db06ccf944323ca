package builder

import (
	"context"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/digest"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/types/known/emptypb"
)

type tracingBuildQueue struct {
	BuildQueue
}

// NewTracingBuildQueue creates a decorator for BuildQueue that attaches
// the instance name and action digest of requests to the trace span
// created by the gRPC server.
func NewTracingBuildQueue(base BuildQueue) BuildQueue {
	return &tracingBuildQueue{
		BuildQueue: base,
	}
}

func (bq *tracingBuildQueue) GetCapabilities(ctx context.Context, instanceName digest.InstanceName) (*remoteexecution.ServerCapabilities, error) {
	trace.SpanFromContext(ctx).AddEvent("BuildQueue.GetCapabilities", trace.WithAttributes(
		attribute.String("instance_name", instanceName.String())))
	return bq.BuildQueue.GetCapabilities(ctx, instanceName)
}

func (bq *tracingBuildQueue) Execute(in *remoteexecution.ExecuteRequest, out remoteexecution.Execution_ExecuteServer) error {
	trace.SpanFromContext(out.Context()).AddEvent("BuildQueue.Execute", trace.WithAttributes(
		attribute.String("instance_name", in.InstanceName),
		attribute.String("action_digest.hash", in.ActionDigest.GetHash()),
		attribute.Int64("action_digest.size_bytes", in.ActionDigest.GetSizeBytes()),
		attribute.Bool("skip_cache_lookup", in.SkipCacheLookup),
		attribute.Int64("priority", int64(in.ExecutionPolicy.GetPriority()))))
	return bq.BuildQueue.Execute(in, out)
}

func addOperationEvent(ctx context.Context, method, operationName string) {
	trace.SpanFromContext(ctx).AddEvent("BuildQueue."+method, trace.WithAttributes(
		attribute.String("operation_name", operationName)))
}

func (bq *tracingBuildQueue) WaitExecution(in *remoteexecution.WaitExecutionRequest, out remoteexecution.Execution_WaitExecutionServer) error {
	addOperationEvent(out.Context(), "WaitExecution", in.Name)
	return bq.BuildQueue.WaitExecution(in, out)
}

func (bq *tracingBuildQueue) GetOperation(ctx context.Context, in *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	addOperationEvent(ctx, "GetOperation", in.Name)
	return bq.BuildQueue.GetOperation(ctx, in)
}

func (bq *tracingBuildQueue) CancelOperation(ctx context.Context, in *longrunningpb.CancelOperationRequest) (*emptypb.Empty, error) {
	addOperationEvent(ctx, "CancelOperation", in.Name)
	return bq.BuildQueue.CancelOperation(ctx, in)
}

func (bq *tracingBuildQueue) WaitOperation(ctx context.Context, in *longrunningpb.WaitOperationRequest) (*longrunningpb.Operation, error) {
	addOperationEvent(ctx, "WaitOperation", in.Name)
	return bq.BuildQueue.WaitOperation(ctx, in)
}
