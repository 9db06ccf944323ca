package blobstore

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type existenceCachingBlobAccess struct {
	BlobAccess
	existenceCache *digest.ExistenceCache
}

// NewExistenceCachingBlobAccess creates a decorator for BlobAccess that
// adds caching to the FindMissing() operation.
//
// Clients tend to frequently call FindMissingBlobs() with overlapping
// sets of digests, for example when uploading the input roots of many
// actions that share dependencies. This decorator prevents these
// requests from all reaching the storage backend.
func NewExistenceCachingBlobAccess(base BlobAccess, existenceCache *digest.ExistenceCache) BlobAccess {
	return &existenceCachingBlobAccess{
		BlobAccess:     base,
		existenceCache: existenceCache,
	}
}

func (ba *existenceCachingBlobAccess) Get(ctx context.Context, blobDigest digest.Digest) buffer.Buffer {
	return buffer.WithErrorHandler(ba.BlobAccess.Get(ctx, blobDigest), func(err error) error {
		// Evict immediately when the blob turns out to be
		// absent, instead of waiting for the entry to expire.
		if status.Code(err) == codes.NotFound {
			ba.existenceCache.Remove(blobDigest)
		}
		return err
	})
}

func (ba *existenceCachingBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	// Determine which digests don't need to be checked, because
	// they have already been requested recently.
	maybeMissing := ba.existenceCache.RemoveExisting(digests)

	missing, err := ba.BlobAccess.FindMissing(ctx, maybeMissing)
	if err != nil {
		return digest.EmptySet, err
	}

	// Insert the digests that were present for future calls.
	present, _, _ := digest.GetDifferenceAndIntersection(maybeMissing, missing)
	ba.existenceCache.Add(present)
	return missing, nil
}

func (ba *existenceCachingBlobAccess) Delete(ctx context.Context, blobDigest digest.Digest) error {
	ba.existenceCache.Remove(blobDigest)
	return ba.BlobAccess.Delete(ctx, blobDigest)
}
