package blobstore_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
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

func TestS3BlobAccess(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	s3Client := mock.NewMockS3Client(ctrl)
	blobAccess := blobstore.NewS3BlobAccess(s3Client, "build-cache", "cas/", digest.KeyWithoutInstance, blobstore.CASReadBufferFactory, 1<<20)

	helloDigest := digest.MustNewDigest("main", remoteexecution.DigestFunction_SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", 5)
	helloKey := awssdk.String("cas/1-2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824-5")

	t.Run("GetSuccess", func(t *testing.T) {
		s3Client.EXPECT().GetObject(ctx, &s3.GetObjectInput{
			Bucket: awssdk.String("build-cache"),
			Key:    helloKey,
		}).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(bytes.NewBufferString("hello")),
		}, nil)

		data, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s3Client.EXPECT().GetObject(ctx, gomock.Any()).Return(nil, &types.NoSuchKey{})

		_, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		testutil.RequireEqualStatus(t, status.Errorf(codes.NotFound, "Blob %s not found", helloDigest), err)
	})

	t.Run("GetCorrupted", func(t *testing.T) {
		// Objects whose contents do not match the digest are
		// removed from the bucket.
		s3Client.EXPECT().GetObject(ctx, gomock.Any()).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(bytes.NewBufferString("jello")),
		}, nil)
		s3Client.EXPECT().DeleteObject(gomock.Any(), &s3.DeleteObjectInput{
			Bucket: awssdk.String("build-cache"),
			Key:    helloKey,
		}).Return(&s3.DeleteObjectOutput{}, nil)

		_, err := blobAccess.Get(ctx, helloDigest).ToByteSlice(100)
		require.Equal(t, codes.Internal, status.Code(err))
	})

	t.Run("Put", func(t *testing.T) {
		s3Client.EXPECT().PutObject(ctx, gomock.Any()).DoAndReturn(
			func(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				require.Equal(t, "build-cache", *input.Bucket)
				require.Equal(t, *helloKey, *input.Key)
				require.Equal(t, int64(5), *input.ContentLength)
				data, err := io.ReadAll(input.Body)
				require.NoError(t, err)
				require.Equal(t, []byte("hello"), data)
				return &s3.PutObjectOutput{}, nil
			})

		require.NoError(t, blobAccess.Put(ctx, helloDigest, buffer.NewValidatedBufferFromByteSlice([]byte("hello"))))
	})

	t.Run("FindMissing", func(t *testing.T) {
		otherDigest := digest.MustNewDigest("main", remoteexecution.DigestFunction_SHA256, "486ea46224d1bb4fb680f34f7c9ad96a8f24ec88be73ea8e5a6c65260e9cb8a7", 5)
		s3Client.EXPECT().HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: awssdk.String("build-cache"),
			Key:    helloKey,
		}).Return(&s3.HeadObjectOutput{}, nil)
		s3Client.EXPECT().HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: awssdk.String("build-cache"),
			Key:    awssdk.String("cas/1-486ea46224d1bb4fb680f34f7c9ad96a8f24ec88be73ea8e5a6c65260e9cb8a7-5"),
		}).Return(nil, &types.NotFound{})

		missing, err := blobAccess.FindMissing(ctx, digest.NewSetBuilder().Add(helloDigest).Add(otherDigest).Build())
		require.NoError(t, err)
		require.Equal(t, otherDigest.ToSingletonSet(), missing)
	})

	t.Run("FindMissingFailure", func(t *testing.T) {
		s3Client.EXPECT().HeadObject(ctx, gomock.Any()).Return(nil, status.Error(codes.Internal, "Connection reset"))

		_, err := blobAccess.FindMissing(ctx, helloDigest.ToSingletonSet())
		testutil.RequireEqualStatus(t, status.Errorf(codes.Unavailable, "Failed to determine existence of blob %s: S3 request failed: Connection reset", helloDigest), err)
	})
}
