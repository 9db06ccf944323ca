package blobstore

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
)

// BlobAccess is an abstraction for a data store that can be used to
// hold both an Action Cache (AC) and Content Addressable Storage (CAS).
type BlobAccess interface {
	// Get a blob. The blob's integrity is validated by the buffer
	// as it is being read.
	Get(ctx context.Context, digest digest.Digest) buffer.Buffer
	// Put a blob. Storing the same blob twice is not an error.
	Put(ctx context.Context, digest digest.Digest, b buffer.Buffer) error
	// FindMissing returns the subset of digests that are absent.
	FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error)
	// Delete a blob. Deleting a blob that is absent is not an error.
	Delete(ctx context.Context, digest digest.Digest) error
}
