package grpc_test

import (
	"context"
	"testing"

	"github.com/buildbarn/bb-fleet/internal/mock"
	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"

	"go.uber.org/mock/gomock"
)

func TestMetadataForwardingUnaryClientInterceptor(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	interceptor := bb_grpc.NewMetadataForwardingUnaryClientInterceptor([]string{"authorization"})
	invoker := mock.NewMockUnaryInvoker(ctrl)
	req := &emptypb.Empty{}
	resp := &emptypb.Empty{}

	t.Run("NoIncomingMetadata", func(t *testing.T) {
		// If the request contains no incoming request metadata,
		// no outgoing request metadata should be added.
		invoker.EXPECT().Call(ctx, "SomeMethod", req, resp, nil).Return(nil)

		require.NoError(t, interceptor(ctx, "SomeMethod", req, resp, nil, invoker.Call))
	})

	t.Run("NoAuthorizationHeader", func(t *testing.T) {
		// If the incoming request metadata does not contain any
		// matching header, the context should be left alone.
		ctxWithMetadata := metadata.NewIncomingContext(ctx, metadata.Pairs("foo", "bar"))
		invoker.EXPECT().Call(ctxWithMetadata, "SomeMethod", req, resp, nil).Return(nil)

		require.NoError(t, interceptor(ctxWithMetadata, "SomeMethod", req, resp, nil, invoker.Call))
	})

	t.Run("AuthorizationHeader", func(t *testing.T) {
		ctxWithMetadata := metadata.NewIncomingContext(
			ctx,
			metadata.Pairs("authorization", "Bearer a", "authorization", "Bearer b", "foo", "bar"))
		invoker.EXPECT().Call(gomock.Any(), "SomeMethod", req, resp, nil).DoAndReturn(
			func(ctx context.Context, method string, req, resp any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
				md, ok := metadata.FromOutgoingContext(ctx)
				require.True(t, ok)
				require.Equal(t, metadata.Pairs("authorization", "Bearer a", "authorization", "Bearer b"), md)
				return nil
			})

		require.NoError(t, interceptor(ctxWithMetadata, "SomeMethod", req, resp, nil, invoker.Call))
	})
}
