package blobstore_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"cloud.google.com/go/storage"
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

func TestGCSBlobAccess(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	bucket := mock.NewMockStorageBucketHandle(ctrl)
	blobAccess := blobstore.NewGCSBlobAccess(bucket, "ac/", digest.KeyWithInstance, blobstore.CASReadBufferFactory)

	helloDigest := digest.MustNewDigest("main", remoteexecution.DigestFunction_SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", 5)
	helloKey := "ac/1-2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824-5-main"

	t.Run("GetSuccess", func(t *testing.T) {
		object := mock.NewMockStorageObjectHandle(ctrl)
		bucket.EXPECT().Object(helloKey).Return(object)
		object.EXPECT().NewReader(ctx).Return(io.NopCloser(bytes.NewBufferString("hello")), nil)

		data, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		object := mock.NewMockStorageObjectHandle(ctrl)
		bucket.EXPECT().Object(helloKey).Return(object)
		object.EXPECT().NewReader(ctx).Return(nil, storage.ErrObjectNotExist)

		_, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		testutil.RequireEqualStatus(t, status.Errorf(codes.NotFound, "Blob %s not found", helloDigest), err)
	})

	t.Run("PutSuccess", func(t *testing.T) {
		object := mock.NewMockStorageObjectHandle(ctrl)
		bucket.EXPECT().Object(helloKey).Return(object)
		writer := mock.NewMockWriteCloser(ctrl)
		object.EXPECT().NewWriter(gomock.Any()).Return(writer)
		writer.EXPECT().Write([]byte("hello")).Return(5, nil)
		writer.EXPECT().Close()

		require.NoError(t, blobAccess.Put(ctx, helloDigest, buffer.NewValidatedBufferFromByteSlice([]byte("hello"))))
	})

	t.Run("PutAborted", func(t *testing.T) {
		// Upload failures cancel the context of the writer before
		// closing it, so that no partial object gets committed.
		object := mock.NewMockStorageObjectHandle(ctrl)
		bucket.EXPECT().Object(helloKey).Return(object)
		writer := mock.NewMockWriteCloser(ctrl)
		var writerCtx context.Context
		object.EXPECT().NewWriter(gomock.Any()).DoAndReturn(func(ctx context.Context) io.WriteCloser {
			writerCtx = ctx
			return writer
		})
		writer.EXPECT().Close().DoAndReturn(func() error {
			require.Error(t, writerCtx.Err())
			return nil
		})

		err := blobAccess.Put(ctx, helloDigest, buffer.NewBufferFromError(status.Error(codes.Internal, "Client hung up")))
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Client hung up"), err)
	})

	t.Run("FindMissing", func(t *testing.T) {
		object := mock.NewMockStorageObjectHandle(ctrl)
		bucket.EXPECT().Object(helloKey).Return(object)
		object.EXPECT().Attrs(ctx).Return(nil, storage.ErrObjectNotExist)

		missing, err := blobAccess.FindMissing(ctx, helloDigest.ToSingletonSet())
		require.NoError(t, err)
		require.Equal(t, helloDigest.ToSingletonSet(), missing)
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		object := mock.NewMockStorageObjectHandle(ctrl)
		bucket.EXPECT().Object(helloKey).Return(object)
		object.EXPECT().Delete(ctx).Return(storage.ErrObjectNotExist)

		require.NoError(t, blobAccess.Delete(ctx, helloDigest))
	})
}
