package grpc_test

import (
	"context"
	"testing"

	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"go.uber.org/mock/gomock"
)

func TestAuthenticatingUnaryInterceptor(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	authenticator := mock.NewMockAuthenticator(ctrl)
	interceptor := bb_grpc.NewAuthenticatingUnaryInterceptor(authenticator)
	handler := mock.NewMockUnaryHandler(ctrl)
	req := &emptypb.Empty{}
	resp := &emptypb.Empty{}

	t.Run("Denied", func(t *testing.T) {
		authenticator.EXPECT().Authenticate(ctx).Return(nil, status.Error(codes.Unauthenticated, "Missing authorization header"))

		_, err := interceptor(ctx, req, nil, handler.Call)
		testutil.RequireEqualStatus(t, status.Error(codes.Unauthenticated, "Missing authorization header"), err)
	})

	t.Run("ReturnsModifiedCtx", func(t *testing.T) {
		authenticator.EXPECT().Authenticate(ctx).Return(auth.MustNewAuthenticationMetadataFromRaw(map[string]any{
			"public": "You're totally who you say you are",
		}), nil)
		handler.EXPECT().Call(gomock.Any(), req).DoAndReturn(
			func(ctx context.Context, req any) (any, error) {
				require.Equal(t, map[string]any{
					"public": "You're totally who you say you are",
				}, auth.AuthenticationMetadataFromContext(ctx).GetRaw())
				return resp, nil
			})

		gotResp, err := interceptor(ctx, req, nil, handler.Call)
		require.NoError(t, err)
		require.Equal(t, resp, gotResp)
	})
}

func TestAuthenticatingStreamInterceptor(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	authenticator := mock.NewMockAuthenticator(ctrl)
	interceptor := bb_grpc.NewAuthenticatingStreamInterceptor(authenticator)
	handler := mock.NewMockStreamHandler(ctrl)

	t.Run("Denied", func(t *testing.T) {
		serverStream := mock.NewMockServerStream(ctrl)
		serverStream.EXPECT().Context().Return(ctx).AnyTimes()
		authenticator.EXPECT().Authenticate(ctx).Return(nil, status.Error(codes.Unauthenticated, "Missing authorization header"))

		testutil.RequireEqualStatus(
			t,
			status.Error(codes.Unauthenticated, "Missing authorization header"),
			interceptor(nil, serverStream, nil, handler.Call))
	})

	t.Run("ReturnsModifiedCtx", func(t *testing.T) {
		serverStream := mock.NewMockServerStream(ctrl)
		serverStream.EXPECT().Context().Return(ctx).AnyTimes()
		authenticator.EXPECT().Authenticate(ctx).Return(auth.MustNewAuthenticationMetadataFromRaw(map[string]any{
			"public": "You're totally who you say you are",
		}), nil)
		handler.EXPECT().Call(gomock.Any(), gomock.Any()).DoAndReturn(
			func(srv any, stream grpc.ServerStream) error {
				require.Equal(t, map[string]any{
					"public": "You're totally who you say you are",
				}, auth.AuthenticationMetadataFromContext(stream.Context()).GetRaw())
				return nil
			})

		require.NoError(t, interceptor(nil, serverStream, nil, handler.Call))
	})
}
