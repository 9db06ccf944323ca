package blobstore

import (
	"bytes"
	"context"
	"errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/cloud/aws"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func convertS3Error(err error, blobDigest digest.Digest) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return status.Errorf(codes.NotFound, "Blob %s not found", blobDigest)
	}
	return util.StatusWrapWithCode(err, codes.Unavailable, "S3 request failed")
}

type s3BlobAccess struct {
	s3Client          aws.S3Client
	bucketName        string
	keyPrefix         string
	keyFormat         digest.KeyFormat
	readBufferFactory ReadBufferFactory
	maximumSizeBytes  int
}

// NewS3BlobAccess creates a BlobAccess that uses an S3 bucket as its
// backing store. Objects are stored under the key of the digest,
// prefixed with a configurable string.
func NewS3BlobAccess(s3Client aws.S3Client, bucketName, keyPrefix string, keyFormat digest.KeyFormat, readBufferFactory ReadBufferFactory, maximumSizeBytes int) BlobAccess {
	return &s3BlobAccess{
		s3Client:          s3Client,
		bucketName:        bucketName,
		keyPrefix:         keyPrefix,
		keyFormat:         keyFormat,
		readBufferFactory: readBufferFactory,
		maximumSizeBytes:  maximumSizeBytes,
	}
}

func (ba *s3BlobAccess) getKey(blobDigest digest.Digest) *string {
	return awssdk.String(ba.keyPrefix + blobDigest.GetKey(ba.keyFormat))
}

func (ba *s3BlobAccess) Get(ctx context.Context, blobDigest digest.Digest) buffer.Buffer {
	result, err := ba.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(ba.bucketName),
		Key:    ba.getKey(blobDigest),
	})
	if err != nil {
		return buffer.NewBufferFromError(convertS3Error(err, blobDigest))
	}
	return ba.readBufferFactory.NewBufferFromReader(blobDigest, result.Body, func(dataIsValid bool) {
		if !dataIsValid {
			ba.Delete(context.Background(), blobDigest)
		}
	})
}

func (ba *s3BlobAccess) Put(ctx context.Context, blobDigest digest.Digest, b buffer.Buffer) error {
	data, err := b.ToByteSlice(ba.maximumSizeBytes)
	if err != nil {
		return err
	}
	if _, err := ba.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        awssdk.String(ba.bucketName),
		Key:           ba.getKey(blobDigest),
		Body:          bytes.NewReader(data),
		ContentLength: awssdk.Int64(int64(len(data))),
	}); err != nil {
		return convertS3Error(err, blobDigest)
	}
	return nil
}

func (ba *s3BlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	missing := digest.NewSetBuilder()
	for _, blobDigest := range digests.Items() {
		if _, err := ba.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: awssdk.String(ba.bucketName),
			Key:    ba.getKey(blobDigest),
		}); err != nil {
			err = convertS3Error(err, blobDigest)
			if status.Code(err) != codes.NotFound {
				return digest.EmptySet, util.StatusWrapf(err, "Failed to determine existence of blob %s", blobDigest)
			}
			missing.Add(blobDigest)
		}
	}
	return missing.Build(), nil
}

func (ba *s3BlobAccess) Delete(ctx context.Context, blobDigest digest.Digest) error {
	if _, err := ba.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: awssdk.String(ba.bucketName),
		Key:    ba.getKey(blobDigest),
	}); err != nil {
		if err := convertS3Error(err, blobDigest); status.Code(err) != codes.NotFound {
			return err
		}
	}
	return nil
}
