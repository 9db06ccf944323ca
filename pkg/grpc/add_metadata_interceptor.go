package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// NewAddMetadataUnaryClientInterceptor creates an interceptor that
// adds fixed key-value pairs to the metadata of outgoing unary calls.
// bb_execute uses this to send credentials and correlation headers to
// the scheduler.
func NewAddMetadataUnaryClientInterceptor(pairs []string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, resp any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(metadata.AppendToOutgoingContext(ctx, pairs...), method, req, resp, cc, opts...)
	}
}

// NewAddMetadataStreamClientInterceptor is the equivalent of
// NewAddMetadataUnaryClientInterceptor for streaming calls, such as
// Execute(), WaitExecution() and ByteStream transfers.
func NewAddMetadataStreamClientInterceptor(pairs []string) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(metadata.AppendToOutgoingContext(ctx, pairs...), desc, cc, method, opts...)
	}
}
