package blobstore

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
)

type emptyBlobInjectingBlobAccess struct {
	base BlobAccess
}

// NewEmptyBlobInjectingBlobAccess is a decorator for BlobAccess that
// causes it to directly process any requests for blobs of size zero.
// Get() operations immediately return an empty buffer, while Put()
// operations for such buffers are ignored. The system behaves as if
// the empty blob is always present, as clients never upload it.
func NewEmptyBlobInjectingBlobAccess(base BlobAccess) BlobAccess {
	return &emptyBlobInjectingBlobAccess{
		base: base,
	}
}

func (ba *emptyBlobInjectingBlobAccess) Get(ctx context.Context, digest digest.Digest) buffer.Buffer {
	if digest.GetSizeBytes() == 0 {
		return buffer.NewCASBufferFromByteSlice(digest, nil, buffer.UserProvided)
	}
	return ba.base.Get(ctx, digest)
}

func (ba *emptyBlobInjectingBlobAccess) Put(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
	if digest.GetSizeBytes() == 0 {
		_, err := b.ToByteSlice(0)
		return err
	}
	return ba.base.Put(ctx, digest, b)
}

func (ba *emptyBlobInjectingBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	return ba.base.FindMissing(ctx, digests.RemoveEmptyBlob())
}

func (ba *emptyBlobInjectingBlobAccess) Delete(ctx context.Context, digest digest.Digest) error {
	if digest.GetSizeBytes() == 0 {
		return nil
	}
	return ba.base.Delete(ctx, digest)
}
