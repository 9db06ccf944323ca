package grpcclients

import (
	"context"
	"io"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/genproto/googleapis/bytestream"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

const resourceNameHeader = "build.bazel.remote.execution.v2.resource-name"

type casBlobAccess struct {
	byteStreamClient                bytestream.ByteStreamClient
	contentAddressableStorageClient remoteexecution.ContentAddressableStorageClient
	uuidGenerator                   util.UUIDGenerator
	readChunkSize                   int
	compressor                      remoteexecution.Compressor_Value
}

// NewCASBlobAccess creates a BlobAccess handle that relays any requests
// to a gRPC service that implements the bytestream.ByteStream and
// remoteexecution.ContentAddressableStorage services.
//
// If enableZSTDCompression is true, blobs are transferred through the
// ByteStream service in Zstandard compressed form.
func NewCASBlobAccess(client grpc.ClientConnInterface, uuidGenerator util.UUIDGenerator, readChunkSize int, enableZSTDCompression bool) blobstore.BlobAccess {
	compressor := remoteexecution.Compressor_IDENTITY
	if enableZSTDCompression {
		compressor = remoteexecution.Compressor_ZSTD
	}
	return &casBlobAccess{
		byteStreamClient:                bytestream.NewByteStreamClient(client),
		contentAddressableStorageClient: remoteexecution.NewContentAddressableStorageClient(client),
		uuidGenerator:                   uuidGenerator,
		readChunkSize:                   readChunkSize,
		compressor:                      compressor,
	}
}

// byteStreamReader adapts a ByteStream_ReadClient to an io.ReadCloser.
type byteStreamReader struct {
	client bytestream.ByteStream_ReadClient
	cancel context.CancelFunc
	data   []byte
}

func (r *byteStreamReader) Read(p []byte) (int, error) {
	for len(r.data) == 0 {
		response, err := r.client.Recv()
		if err != nil {
			return 0, err
		}
		r.data = response.Data
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func (r *byteStreamReader) Close() error {
	r.cancel()
	for {
		if _, err := r.client.Recv(); err != nil {
			return nil
		}
	}
}

func (ba *casBlobAccess) Get(ctx context.Context, blobDigest digest.Digest) buffer.Buffer {
	ctxWithCancel, cancel := context.WithCancel(ctx)
	resourceName := blobDigest.GetByteStreamReadPath(ba.compressor)
	client, err := ba.byteStreamClient.Read(
		metadata.AppendToOutgoingContext(ctxWithCancel, resourceNameHeader, resourceName),
		&bytestream.ReadRequest{
			ResourceName: resourceName,
		})
	if err != nil {
		cancel()
		return buffer.NewBufferFromError(err)
	}

	var r io.ReadCloser = &byteStreamReader{
		client: client,
		cancel: cancel,
	}
	if ba.compressor == remoteexecution.Compressor_ZSTD {
		zstdReader, err := util.NewZstdReadCloser(r)
		if err != nil {
			r.Close()
			return buffer.NewBufferFromError(util.StatusWrapWithCode(err, codes.Internal, "Failed to create zstd reader"))
		}
		r = zstdReader
	}
	return buffer.NewCASBufferFromReader(blobDigest, r, buffer.BackendProvided(buffer.Irreparable(blobDigest)))
}

// byteStreamWriter adapts a ByteStream_WriteClient to an io.Writer.
// Only the first request carries the resource name.
type byteStreamWriter struct {
	client       bytestream.ByteStream_WriteClient
	resourceName string
	writeOffset  int64
}

func (w *byteStreamWriter) Write(p []byte) (int, error) {
	if err := w.client.Send(&bytestream.WriteRequest{
		ResourceName: w.resourceName,
		WriteOffset:  w.writeOffset,
		Data:         append([]byte(nil), p...),
	}); err != nil {
		return 0, err
	}
	w.writeOffset += int64(len(p))
	w.resourceName = ""
	return len(p), nil
}

// abort terminates the stream after a failure. If sending failed
// because the server already closed the stream, the error returned by
// the server is returned instead.
func (w *byteStreamWriter) abort(err error) error {
	if _, recvErr := w.client.CloseAndRecv(); err == io.EOF && recvErr != nil {
		return recvErr
	}
	return err
}

func (w *byteStreamWriter) finish() error {
	if err := w.client.Send(&bytestream.WriteRequest{
		ResourceName: w.resourceName,
		WriteOffset:  w.writeOffset,
		FinishWrite:  true,
	}); err != nil && err != io.EOF {
		return err
	}
	_, err := w.client.CloseAndRecv()
	return err
}

// chunkingWriter splits writes into chunks of a bounded size.
type chunkingWriter struct {
	w         io.Writer
	chunkSize int
}

func (w chunkingWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := min(len(p), w.chunkSize)
		if _, err := w.w.Write(p[:n]); err != nil {
			return written, err
		}
		written += n
		p = p[n:]
	}
	return written, nil
}

func (ba *casBlobAccess) Put(ctx context.Context, blobDigest digest.Digest, b buffer.Buffer) error {
	resourceUUID, err := ba.uuidGenerator()
	if err != nil {
		b.Discard()
		return util.StatusWrapWithCode(err, codes.Internal, "Failed to generate upload ID")
	}

	ctxWithCancel, cancel := context.WithCancel(ctx)
	defer cancel()
	resourceName := blobDigest.GetByteStreamWritePath(resourceUUID, ba.compressor)
	client, err := ba.byteStreamClient.Write(
		metadata.AppendToOutgoingContext(ctxWithCancel, resourceNameHeader, resourceName))
	if err != nil {
		b.Discard()
		return err
	}

	w := &byteStreamWriter{
		client:       client,
		resourceName: resourceName,
	}
	chunker := chunkingWriter{w: w, chunkSize: ba.readChunkSize}
	if ba.compressor == remoteexecution.Compressor_ZSTD {
		zstdWriter, err := util.NewZstdWriter(chunker)
		if err != nil {
			b.Discard()
			return util.StatusWrapWithCode(err, codes.Internal, "Failed to create zstd writer")
		}
		if err := b.IntoWriter(zstdWriter); err != nil {
			zstdWriter.Close()
			cancel()
			return w.abort(err)
		}
		if err := zstdWriter.Close(); err != nil {
			return w.abort(err)
		}
	} else if err := b.IntoWriter(chunker); err != nil {
		cancel()
		return w.abort(err)
	}
	return w.finish()
}

func (ba *casBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	// The FindMissingBlobs() RPC can only process digests for a
	// single instance name and digest function.
	perFunctionDigests := map[digest.Function][]*remoteexecution.Digest{}
	for _, d := range digests.Items() {
		digestFunction := d.GetDigestFunction()
		perFunctionDigests[digestFunction] = append(perFunctionDigests[digestFunction], d.GetProto())
	}

	missing := digest.NewSetBuilder()
	for digestFunction, blobDigests := range perFunctionDigests {
		response, err := ba.contentAddressableStorageClient.FindMissingBlobs(ctx, &remoteexecution.FindMissingBlobsRequest{
			InstanceName:   digestFunction.GetInstanceName().String(),
			BlobDigests:    blobDigests,
			DigestFunction: digestFunction.GetEnumValue(),
		})
		if err != nil {
			return digest.EmptySet, err
		}
		for _, missingDigest := range response.MissingBlobDigests {
			d, err := digestFunction.NewDigestFromProto(missingDigest)
			if err != nil {
				return digest.EmptySet, util.StatusWrap(err, "Server returned an invalid digest")
			}
			missing.Add(d)
		}
	}
	return missing.Build(), nil
}

// Delete is a no-op, as the remote CAS manages the lifetime of its
// own blobs.
func (ba *casBlobAccess) Delete(ctx context.Context, blobDigest digest.Digest) error {
	return nil
}
