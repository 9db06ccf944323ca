package blobstore

import (
	"context"
	"io"
	"math"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// ReadBufferFactory is passed to implementations of BlobAccess to be
// able to use the same BlobAccess implementation for both the Content
// Addressable Storage (CAS) and the Action Cache (AC). This interface
// provides functions for buffer creation.
type ReadBufferFactory interface {
	// NewBufferFromByteSlice creates a buffer from a byte slice.
	NewBufferFromByteSlice(digest digest.Digest, data []byte, dataIntegrityCallback buffer.DataIntegrityCallback) buffer.Buffer
	// NewBufferFromReader creates a buffer from a reader.
	NewBufferFromReader(digest digest.Digest, r io.ReadCloser, dataIntegrityCallback buffer.DataIntegrityCallback) buffer.Buffer
}

type casReadBufferFactory struct{}

func (casReadBufferFactory) NewBufferFromByteSlice(digest digest.Digest, data []byte, dataIntegrityCallback buffer.DataIntegrityCallback) buffer.Buffer {
	return buffer.NewCASBufferFromByteSlice(digest, data, buffer.BackendProvided(dataIntegrityCallback))
}

func (casReadBufferFactory) NewBufferFromReader(digest digest.Digest, r io.ReadCloser, dataIntegrityCallback buffer.DataIntegrityCallback) buffer.Buffer {
	return buffer.NewCASBufferFromReader(digest, r, buffer.BackendProvided(dataIntegrityCallback))
}

// CASReadBufferFactory is capable of creating buffers for objects
// stored in the Content Addressable Storage (CAS).
var CASReadBufferFactory ReadBufferFactory = casReadBufferFactory{}

type acReadBufferFactory struct {
	maximumMessageSizeBytes int
}

func (acReadBufferFactory) NewBufferFromByteSlice(digest digest.Digest, data []byte, dataIntegrityCallback buffer.DataIntegrityCallback) buffer.Buffer {
	return buffer.NewProtoBufferFromByteSlice(&remoteexecution.ActionResult{}, data, buffer.BackendProvided(dataIntegrityCallback))
}

func (f acReadBufferFactory) NewBufferFromReader(digest digest.Digest, r io.ReadCloser, dataIntegrityCallback buffer.DataIntegrityCallback) buffer.Buffer {
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, int64(f.maximumMessageSizeBytes)+1))
	if err != nil {
		return buffer.NewBufferFromError(util.StatusWrapWithCode(err, codes.Internal, "Failed to read action result"))
	}
	if len(data) > f.maximumMessageSizeBytes {
		dataIntegrityCallback(false)
		return buffer.NewBufferFromError(status.Errorf(codes.Internal, "Action result exceeds the maximum size of %d bytes", f.maximumMessageSizeBytes))
	}
	return f.NewBufferFromByteSlice(digest, data, dataIntegrityCallback)
}

// ACReadBufferFactory is capable of creating buffers for objects stored
// in the Action Cache (AC).
var ACReadBufferFactory ReadBufferFactory = acReadBufferFactory{
	maximumMessageSizeBytes: 16 * 1024 * 1024,
}

// CASPutProto is a helper function for storing Protobuf messages in the
// Content Addressable Storage (CAS). It computes the digest of the
// message and stores it under that key. The digest is then returned, so
// that the object may be referenced.
func CASPutProto(ctx context.Context, blobAccess BlobAccess, message proto.Message, digestFunction digest.Function) (digest.Digest, error) {
	data, err := buffer.NewProtoBufferFromProto(message, buffer.UserProvided).ToByteSlice(math.MaxInt)
	if err != nil {
		return digest.BadDigest, err
	}
	blobDigest := digestFunction.Compute(data)
	if err := blobAccess.Put(ctx, blobDigest, buffer.NewValidatedBufferFromByteSlice(data)); err != nil {
		return digest.BadDigest, err
	}
	return blobDigest, nil
}
