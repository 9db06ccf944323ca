package grpc

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/auth"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"

	"google.golang.org/grpc"

	"go.opentelemetry.io/otel/trace"
)

func authenticate(ctx context.Context, a Authenticator) (context.Context, error) {
	metadata, err := a.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		return ctx, nil
	}
	if attributes := metadata.GetTracingAttributes(); len(attributes) > 0 {
		trace.SpanFromContext(ctx).SetAttributes(attributes...)
	}
	return auth.NewContextWithAuthenticationMetadata(ctx, metadata), nil
}

// NewAuthenticatingUnaryInterceptor creates a gRPC request interceptor
// for unary calls that passes all requests through an Authenticator.
// This may be used to enable authentication support on a gRPC server.
func NewAuthenticatingUnaryInterceptor(a Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		newCtx, err := authenticate(ctx, a)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// NewAuthenticatingStreamInterceptor creates a gRPC request interceptor
// for streaming calls that passes all requests through an
// Authenticator. This may be used to enable authentication support on a
// gRPC server.
func NewAuthenticatingStreamInterceptor(a Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		newCtx, err := authenticate(ss.Context(), a)
		if err != nil {
			return err
		}
		wrappedServerStream := grpc_middleware.WrapServerStream(ss)
		wrappedServerStream.WrappedContext = newCtx
		return handler(srv, wrappedServerStream)
	}
}
