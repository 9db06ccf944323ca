package blobstore

import (
	"context"
	"log"

	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
)

type readCachingBlobAccess struct {
	slow             BlobAccess
	fast             BlobAccess
	maximumSizeBytes int
}

// NewReadCachingBlobAccess turns a fast data store into a read cache
// for a slow data store. All writes are performed against the slow data
// store directly. The slow data store is only accessed for reading in
// case the fast data store does not contain the blob. The blob is then
// copied into the fast data store.
func NewReadCachingBlobAccess(slow, fast BlobAccess, maximumSizeBytes int) BlobAccess {
	return &readCachingBlobAccess{
		slow:             slow,
		fast:             fast,
		maximumSizeBytes: maximumSizeBytes,
	}
}

func (ba *readCachingBlobAccess) Get(ctx context.Context, blobDigest digest.Digest) buffer.Buffer {
	missing, err := ba.fast.FindMissing(ctx, blobDigest.ToSingletonSet())
	if err != nil {
		return buffer.NewBufferFromError(util.StatusWrap(err, "Fast backend"))
	}
	if missing.Empty() {
		return ba.fast.Get(ctx, blobDigest)
	}

	b1, b2 := ba.slow.Get(ctx, blobDigest).CloneCopy(ba.maximumSizeBytes)
	if err := ba.fast.Put(ctx, blobDigest, b2); err != nil {
		log.Printf("Failed to replicate blob %s into the fast backend: %s", blobDigest, err)
	}
	return b1
}

func (ba *readCachingBlobAccess) Put(ctx context.Context, blobDigest digest.Digest, b buffer.Buffer) error {
	return ba.slow.Put(ctx, blobDigest, b)
}

func (ba *readCachingBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	return ba.slow.FindMissing(ctx, digests)
}

func (ba *readCachingBlobAccess) Delete(ctx context.Context, blobDigest digest.Digest) error {
	if err := ba.fast.Delete(ctx, blobDigest); err != nil {
		return util.StatusWrap(err, "Fast backend")
	}
	return ba.slow.Delete(ctx, blobDigest)
}
