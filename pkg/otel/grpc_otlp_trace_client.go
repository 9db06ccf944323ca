package otel

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

type grpcOTLPTraceClient struct {
	client coltracepb.TraceServiceClient
}

// NewGRPCOTLPTraceClient creates an OTLP trace client that sends spans
// over an existing gRPC connection. This allows the gRPC client options
// of the configuration file to be used for the connection to the
// collector.
func NewGRPCOTLPTraceClient(conn grpc.ClientConnInterface) otlptrace.Client {
	return grpcOTLPTraceClient{
		client: coltracepb.NewTraceServiceClient(conn),
	}
}

func (grpcOTLPTraceClient) Start(ctx context.Context) error {
	return nil
}

func (grpcOTLPTraceClient) Stop(ctx context.Context) error {
	return nil
}

func (c grpcOTLPTraceClient) UploadTraces(ctx context.Context, protoSpans []*tracepb.ResourceSpans) error {
	response, err := c.client.Export(ctx, &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: protoSpans,
	})
	if err != nil {
		return util.StatusWrap(err, "Failed to export spans to collector")
	}
	if partialSuccess := response.GetPartialSuccess(); partialSuccess.GetRejectedSpans() > 0 {
		return status.Errorf(codes.InvalidArgument, "Collector rejected %d spans: %s", partialSuccess.GetRejectedSpans(), partialSuccess.GetErrorMessage())
	}
	return nil
}
