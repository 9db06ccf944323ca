package capabilities_test

import (
	"context"
	"testing"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/capabilities"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.uber.org/mock/gomock"
)

func TestUpdateEnabledClearingProvider(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	authorizer := mock.NewMockAuthorizer(ctrl)
	provider := capabilities.NewUpdateEnabledClearingProvider(
		capabilities.NewCacheCapabilitiesProvider(4<<20),
		authorizer)
	instanceName := digest.MustNewInstanceName("hello")

	t.Run("Trusted", func(t *testing.T) {
		authorizer.EXPECT().Authorize(gomock.Any(), []digest.InstanceName{instanceName}).Return([]error{nil})

		response, err := provider.GetCapabilities(ctx, instanceName)
		require.NoError(t, err)
		require.True(t, response.CacheCapabilities.ActionCacheUpdateCapabilities.UpdateEnabled)
		require.Equal(t, int64(4<<20), response.CacheCapabilities.MaxBatchTotalSizeBytes)
	})

	t.Run("Untrusted", func(t *testing.T) {
		authorizer.EXPECT().Authorize(gomock.Any(), []digest.InstanceName{instanceName}).
			Return([]error{status.Error(codes.PermissionDenied, "You shall not pass")})

		response, err := provider.GetCapabilities(ctx, instanceName)
		require.NoError(t, err)
		require.False(t, response.CacheCapabilities.ActionCacheUpdateCapabilities.UpdateEnabled)

		// The response of the base provider must not be altered.
		authorizer.EXPECT().Authorize(gomock.Any(), []digest.InstanceName{instanceName}).Return([]error{nil})
		response, err = provider.GetCapabilities(ctx, instanceName)
		require.NoError(t, err)
		require.True(t, response.CacheCapabilities.ActionCacheUpdateCapabilities.UpdateEnabled)
	})

	t.Run("AuthorizerFailure", func(t *testing.T) {
		authorizer.EXPECT().Authorize(gomock.Any(), []digest.InstanceName{instanceName}).
			Return([]error{status.Error(codes.Unavailable, "Policy server offline")})

		_, err := provider.GetCapabilities(ctx, instanceName)
		testutil.RequireEqualStatus(t, status.Error(codes.Unavailable, "Authorization: Policy server offline"), err)
	})

	t.Run("NoCacheCapabilities", func(t *testing.T) {
		provider := capabilities.NewUpdateEnabledClearingProvider(
			capabilities.NewExecutionCapabilitiesProvider(remoteexecution.DigestFunction_SHA256),
			authorizer)

		response, err := provider.GetCapabilities(ctx, instanceName)
		require.NoError(t, err)
		require.True(t, response.ExecutionCapabilities.ExecEnabled)
	})
}
