package aliases

import (
	"context"
	"io"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"

	"google.golang.org/grpc"
)

// This file contains aliases for interfaces provided by the Go standard
// library and gRPC, and interfaces for function types declared
// elsewhere. They exist to allow mockgen to emit mocks for them, as it
// can only do so for interface types.

// DataIntegrityCallback corresponds to buffer.DataIntegrityCallback.
type DataIntegrityCallback interface {
	Call(dataIsValid bool)
}

// ReadCloser is an alias of io.ReadCloser.
type ReadCloser = io.ReadCloser

// Writer is an alias of io.Writer.
type Writer = io.Writer

// WriteCloser is an alias of io.WriteCloser.
type WriteCloser = io.WriteCloser

// ClientConnInterface is an alias of grpc.ClientConnInterface.
type ClientConnInterface = grpc.ClientConnInterface

// ClientStream is an alias of grpc.ClientStream.
type ClientStream = grpc.ClientStream

// ServerStream is an alias of grpc.ServerStream.
type ServerStream = grpc.ServerStream

// UnaryHandler corresponds to grpc.UnaryHandler.
type UnaryHandler interface {
	Call(ctx context.Context, req any) (any, error)
}

// StreamHandler corresponds to grpc.StreamHandler.
type StreamHandler interface {
	Call(srv any, stream grpc.ServerStream) error
}

// UnaryInvoker corresponds to grpc.UnaryInvoker.
type UnaryInvoker interface {
	Call(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error
}

// Streamer corresponds to grpc.Streamer.
type Streamer interface {
	Call(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error)
}

// Execution_ExecuteServer is an alias of
// remoteexecution.Execution_ExecuteServer.
type Execution_ExecuteServer = remoteexecution.Execution_ExecuteServer

// Execution_WaitExecutionServer is an alias of
// remoteexecution.Execution_WaitExecutionServer.
type Execution_WaitExecutionServer = remoteexecution.Execution_WaitExecutionServer
