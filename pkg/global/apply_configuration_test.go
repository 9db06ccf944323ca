//go:build darwin || linux

package global_test

import (
	"context"
	"testing"

	"github.com/buildbarn/bb-fleet/pkg/global"
	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestApplyConfigurationResourceLimits(t *testing.T) {
	require.NoError(t, program.RunLocal(context.Background(), func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		_, err := global.ApplyConfiguration(&global.Configuration{
			SetResourceLimits: map[string]global.ResourceLimitConfiguration{
				"ACTIONS": {},
			},
		}, dependenciesGroup)
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.InvalidArgument, "Failed to set resource limit \"ACTIONS\": Resource name is not supported by this operating system"),
			err)
		return nil
	}))
}
