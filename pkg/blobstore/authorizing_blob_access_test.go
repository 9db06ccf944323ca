package blobstore_test

import (
	"context"
	"testing"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/internal/mock"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.uber.org/mock/gomock"
)

func TestAuthorizingBlobAccess(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	baseBlobAccess := mock.NewMockBlobAccess(ctrl)
	getAuthorizer := mock.NewMockAuthorizer(ctrl)
	putAuthorizer := mock.NewMockAuthorizer(ctrl)
	findMissingAuthorizer := mock.NewMockAuthorizer(ctrl)
	blobAccess := blobstore.NewAuthorizingBlobAccess(baseBlobAccess, getAuthorizer, putAuthorizer, findMissingAuthorizer)

	allowed := digest.MustNewDigest("allowed", remoteexecution.DigestFunction_MD5, "8b1a9953c4611296a827abf8c47804d7", 5)
	denied := digest.MustNewDigest("denied", remoteexecution.DigestFunction_MD5, "8b1a9953c4611296a827abf8c47804d7", 5)

	t.Run("GetAllowed", func(t *testing.T) {
		getAuthorizer.EXPECT().Authorize(ctx, []digest.InstanceName{digest.MustNewInstanceName("allowed")}).Return([]error{nil})
		baseBlobAccess.EXPECT().Get(ctx, allowed).Return(buffer.NewValidatedBufferFromByteSlice([]byte("Hello")))

		data, err := blobAccess.Get(ctx, allowed).ToByteSlice(100)
		require.NoError(t, err)
		require.Equal(t, []byte("Hello"), data)
	})

	t.Run("GetDenied", func(t *testing.T) {
		getAuthorizer.EXPECT().Authorize(ctx, []digest.InstanceName{digest.MustNewInstanceName("denied")}).
			Return([]error{status.Error(codes.PermissionDenied, "Permission denied")})

		_, err := blobAccess.Get(ctx, denied).ToByteSlice(100)
		testutil.RequireEqualStatus(t, status.Error(codes.PermissionDenied, "Authorization: Permission denied"), err)
	})

	t.Run("PutDenied", func(t *testing.T) {
		putAuthorizer.EXPECT().Authorize(ctx, []digest.InstanceName{digest.MustNewInstanceName("denied")}).
			Return([]error{status.Error(codes.PermissionDenied, "Permission denied")})

		err := blobAccess.Put(ctx, denied, buffer.NewValidatedBufferFromByteSlice([]byte("Hello")))
		testutil.RequireEqualStatus(t, status.Error(codes.PermissionDenied, "Authorization: Permission denied"), err)
	})

	t.Run("FindMissingDenied", func(t *testing.T) {
		findMissingAuthorizer.EXPECT().Authorize(ctx, []digest.InstanceName{
			digest.MustNewInstanceName("allowed"),
			digest.MustNewInstanceName("denied"),
		}).Return([]error{nil, status.Error(codes.PermissionDenied, "Permission denied")})

		_, err := blobAccess.FindMissing(ctx, digest.NewSetBuilder().Add(allowed).Add(denied).Build())
		testutil.RequireEqualStatus(t, status.Error(codes.PermissionDenied, "Authorization of instance name \"denied\": Permission denied"), err)
	})

	t.Run("FindMissingAllowed", func(t *testing.T) {
		findMissingAuthorizer.EXPECT().Authorize(ctx, []digest.InstanceName{digest.MustNewInstanceName("allowed")}).Return([]error{nil})
		baseBlobAccess.EXPECT().FindMissing(ctx, allowed.ToSingletonSet()).Return(digest.EmptySet, nil)

		missing, err := blobAccess.FindMissing(ctx, allowed.ToSingletonSet())
		require.NoError(t, err)
		require.Equal(t, digest.EmptySet, missing)
	})
}
