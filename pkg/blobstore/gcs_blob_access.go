package blobstore

import (
	"context"
	"errors"

	"cloud.google.com/go/storage"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/cloud/gcp"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type gcsBlobAccess struct {
	bucket            gcp.StorageBucketHandle
	keyPrefix         string
	keyFormat         digest.KeyFormat
	readBufferFactory ReadBufferFactory
}

// NewGCSBlobAccess creates a BlobAccess that uses a Google Cloud
// Storage bucket as its backing store.
func NewGCSBlobAccess(bucket gcp.StorageBucketHandle, keyPrefix string, keyFormat digest.KeyFormat, readBufferFactory ReadBufferFactory) BlobAccess {
	return &gcsBlobAccess{
		bucket:            bucket,
		keyPrefix:         keyPrefix,
		keyFormat:         keyFormat,
		readBufferFactory: readBufferFactory,
	}
}

func (ba *gcsBlobAccess) getObject(blobDigest digest.Digest) gcp.StorageObjectHandle {
	return ba.bucket.Object(ba.keyPrefix + blobDigest.GetKey(ba.keyFormat))
}

func convertGCSError(err error, blobDigest digest.Digest) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return status.Errorf(codes.NotFound, "Blob %s not found", blobDigest)
	}
	return util.StatusWrapWithCode(err, codes.Unavailable, "GCS request failed")
}

func (ba *gcsBlobAccess) Get(ctx context.Context, blobDigest digest.Digest) buffer.Buffer {
	r, err := ba.getObject(blobDigest).NewReader(ctx)
	if err != nil {
		return buffer.NewBufferFromError(convertGCSError(err, blobDigest))
	}
	return ba.readBufferFactory.NewBufferFromReader(blobDigest, r, func(dataIsValid bool) {
		if !dataIsValid {
			ba.Delete(context.Background(), blobDigest)
		}
	})
}

func (ba *gcsBlobAccess) Put(ctx context.Context, blobDigest digest.Digest, b buffer.Buffer) error {
	// Uploads are aborted by canceling the context, as closing the
	// writer would commit partial data.
	ctxWithCancel, cancel := context.WithCancel(ctx)
	defer cancel()
	w := ba.getObject(blobDigest).NewWriter(ctxWithCancel)
	if err := b.IntoWriter(w); err != nil {
		cancel()
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return convertGCSError(err, blobDigest)
	}
	return nil
}

func (ba *gcsBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	missing := digest.NewSetBuilder()
	for _, blobDigest := range digests.Items() {
		if _, err := ba.getObject(blobDigest).Attrs(ctx); err != nil {
			err = convertGCSError(err, blobDigest)
			if status.Code(err) != codes.NotFound {
				return digest.EmptySet, util.StatusWrapf(err, "Failed to determine existence of blob %s", blobDigest)
			}
			missing.Add(blobDigest)
		}
	}
	return missing.Build(), nil
}

func (ba *gcsBlobAccess) Delete(ctx context.Context, blobDigest digest.Digest) error {
	if err := ba.getObject(blobDigest).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return convertGCSError(err, blobDigest)
	}
	return nil
}
