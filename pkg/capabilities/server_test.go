package capabilities_test

import (
	"context"
	"testing"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/bazelbuild/remote-apis/build/bazel/semver"
	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/capabilities"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.uber.org/mock/gomock"
)

func TestServer(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	t.Run("InvalidInstanceName", func(t *testing.T) {
		server := capabilities.NewServer(mock.NewMockCapabilitiesProvider(ctrl))
		_, err := server.GetCapabilities(ctx, &remoteexecution.GetCapabilitiesRequest{
			InstanceName: "linux/operations",
		})
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid instance name \"linux/operations\": Instance name contains reserved keyword \"operations\""), err)
	})

	t.Run("SchedulerPermissionDenied", func(t *testing.T) {
		// The scheduler refuses to report capabilities for
		// instance names for which no workers may be used.
		scheduler := mock.NewMockCapabilitiesProvider(ctrl)
		scheduler.EXPECT().GetCapabilities(gomock.Any(), digest.MustNewInstanceName("linux")).
			Return(nil, status.Error(codes.PermissionDenied, "Not authorized to execute against instance name \"linux\""))
		server := capabilities.NewServer(scheduler)

		_, err := server.GetCapabilities(ctx, &remoteexecution.GetCapabilitiesRequest{
			InstanceName: "linux",
		})
		testutil.RequireEqualStatus(t, status.Error(codes.PermissionDenied, "Not authorized to execute against instance name \"linux\""), err)
	})

	t.Run("StorageAndScheduler", func(t *testing.T) {
		// Capabilities of storage and the scheduler are combined,
		// after which the supported API versions are added.
		server := capabilities.NewServer(capabilities.NewMergingProvider([]capabilities.Provider{
			capabilities.NewCacheCapabilitiesProvider(1 << 20),
			capabilities.NewExecutionCapabilitiesProvider(remoteexecution.DigestFunction_SHA256),
		}))

		serverCapabilities, err := server.GetCapabilities(ctx, &remoteexecution.GetCapabilitiesRequest{
			InstanceName: "linux",
		})
		require.NoError(t, err)
		require.Equal(t, int64(1<<20), serverCapabilities.CacheCapabilities.MaxBatchTotalSizeBytes)
		require.True(t, serverCapabilities.ExecutionCapabilities.ExecEnabled)
		testutil.RequireEqualProto(t, &semver.SemVer{Major: 2, Minor: 0}, serverCapabilities.DeprecatedApiVersion)
		testutil.RequireEqualProto(t, &semver.SemVer{Major: 2, Minor: 0}, serverCapabilities.LowApiVersion)
		testutil.RequireEqualProto(t, &semver.SemVer{Major: 2, Minor: 3}, serverCapabilities.HighApiVersion)
	})

	t.Run("ProviderResponseUnmodified", func(t *testing.T) {
		// Static providers return the same message on every
		// call. Adding API versions must not alter it.
		providerCapabilities := &remoteexecution.ServerCapabilities{
			ExecutionCapabilities: &remoteexecution.ExecutionCapabilities{
				DigestFunction: remoteexecution.DigestFunction_SHA256,
				ExecEnabled:    true,
			},
		}
		server := capabilities.NewServer(capabilities.NewStaticProvider(providerCapabilities))

		_, err := server.GetCapabilities(ctx, &remoteexecution.GetCapabilitiesRequest{})
		require.NoError(t, err)
		require.Nil(t, providerCapabilities.HighApiVersion)
	})
}
