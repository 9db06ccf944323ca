package auth_test

import (
	"context"
	"testing"

	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.opentelemetry.io/otel/attribute"
)

func TestAuthenticationMetadata(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		am := auth.AuthenticationMetadataFromContext(context.Background())
		require.Nil(t, am.GetRaw())
		_, ok := am.GetPublic()
		require.False(t, ok)
		require.Empty(t, am.GetTracingAttributes())
	})

	t.Run("Full", func(t *testing.T) {
		am := auth.MustNewAuthenticationMetadataFromRaw(map[string]any{
			"public": "ci-runner",
			"tracingAttributes": map[string]any{
				"user":  "ci-runner",
				"admin": false,
			},
		})
		ctx := auth.NewContextWithAuthenticationMetadata(context.Background(), am)
		require.Same(t, am, auth.AuthenticationMetadataFromContext(ctx))

		public, ok := am.GetPublic()
		require.True(t, ok)
		require.Equal(t, "ci-runner", public)
		require.Equal(t, []attribute.KeyValue{
			attribute.Bool("auth.admin", false),
			attribute.String("auth.user", "ci-runner"),
		}, am.GetTracingAttributes())
	})

	t.Run("StructuredPublic", func(t *testing.T) {
		am := auth.MustNewAuthenticationMetadataFromRaw(map[string]any{
			"public": map[string]any{"user": "alice"},
		})
		public, ok := am.GetPublic()
		require.True(t, ok)
		require.Equal(t, `{"user":"alice"}`, public)
	})

	t.Run("NotAnObject", func(t *testing.T) {
		_, err := auth.NewAuthenticationMetadataFromRaw([]any{"hello"})
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("BadTracingAttribute", func(t *testing.T) {
		_, err := auth.NewAuthenticationMetadataFromRaw(map[string]any{
			"tracingAttributes": map[string]any{"groups": []any{"a"}},
		})
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Tracing attribute \"groups\" has an unsupported type"), err)
	})
}
