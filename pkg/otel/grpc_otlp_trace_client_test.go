package otel_test

import (
	"context"
	"net"
	"testing"

	bb_otel "github.com/buildbarn/bb-fleet/pkg/otel"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

type fakeTraceServer struct {
	coltracepb.UnimplementedTraceServiceServer

	requests      chan *coltracepb.ExportTraceServiceRequest
	rejectedSpans int64
}

func (s *fakeTraceServer) Export(ctx context.Context, in *coltracepb.ExportTraceServiceRequest) (*coltracepb.ExportTraceServiceResponse, error) {
	s.requests <- in
	if s.rejectedSpans > 0 {
		return &coltracepb.ExportTraceServiceResponse{
			PartialSuccess: &coltracepb.ExportTracePartialSuccess{
				RejectedSpans: s.rejectedSpans,
				ErrorMessage:  "Span name too long",
			},
		}, nil
	}
	return &coltracepb.ExportTraceServiceResponse{}, nil
}

func TestGRPCOTLPTraceClient(t *testing.T) {
	listener := bufconn.Listen(1 << 16)
	server := grpc.NewServer()
	traceServer := &fakeTraceServer{requests: make(chan *coltracepb.ExportTraceServiceRequest, 1)}
	coltracepb.RegisterTraceServiceServer(server, traceServer)
	go server.Serve(listener)
	defer server.Stop()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, address string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := bb_otel.NewGRPCOTLPTraceClient(conn)
	require.NoError(t, client.Start(context.Background()))
	spans := []*tracepb.ResourceSpans{{
		ScopeSpans: []*tracepb.ScopeSpans{{
			Spans: []*tracepb.Span{{Name: "Execute"}},
		}},
	}}
	require.NoError(t, client.UploadTraces(context.Background(), spans))
	testutil.RequireEqualProto(t, &coltracepb.ExportTraceServiceRequest{ResourceSpans: spans}, <-traceServer.requests)

	// Spans rejected by the collector should be reported.
	traceServer.rejectedSpans = 1
	testutil.RequireEqualStatus(
		t,
		status.Error(codes.InvalidArgument, "Collector rejected 1 spans: Span name too long"),
		client.UploadTraces(context.Background(), spans))
	<-traceServer.requests

	require.NoError(t, client.Stop(context.Background()))
}
