package grpcservers

import (
	"context"
	"io"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/genproto/googleapis/bytestream"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type byteStreamServer struct {
	blobAccess    blobstore.BlobAccess
	readChunkSize int
}

// NewByteStreamServer creates a gRPC service for reading blobs from and
// writing blobs to a BlobAccess. Clients use it to transfer blobs that
// are too large to fit in BatchReadBlobs() and BatchUpdateBlobs()
// messages.
func NewByteStreamServer(blobAccess blobstore.BlobAccess, readChunkSize int) bytestream.ByteStreamServer {
	return &byteStreamServer{
		blobAccess:    blobAccess,
		readChunkSize: readChunkSize,
	}
}

func (s *byteStreamServer) Read(in *bytestream.ReadRequest, out bytestream.ByteStream_ReadServer) error {
	if in.ReadLimit != 0 {
		return status.Error(codes.Unimplemented, "This service does not support downloading partial files")
	}
	blobDigest, compressor, err := digest.NewDigestFromByteStreamReadPath(in.ResourceName)
	if err != nil {
		return err
	}

	b := s.blobAccess.Get(out.Context(), blobDigest)
	switch compressor {
	case remoteexecution.Compressor_IDENTITY:
		return s.readIdentity(b, in.ReadOffset, out)
	case remoteexecution.Compressor_ZSTD:
		if in.ReadOffset != 0 {
			b.Discard()
			return status.Error(codes.Unimplemented, "This service does not support reading compressed blobs at an offset")
		}
		zstdWriter, err := util.NewZstdWriter(&readStreamWriter{out: out})
		if err != nil {
			b.Discard()
			return util.StatusWrapWithCode(err, codes.Internal, "Failed to create zstd writer")
		}
		if err := b.IntoWriter(zstdWriter); err != nil {
			zstdWriter.Reset(io.Discard)
			zstdWriter.Close()
			return err
		}
		return zstdWriter.Close()
	default:
		b.Discard()
		return status.Errorf(codes.Unimplemented, "This service does not support downloading compression type: %s", compressor)
	}
}

func (s *byteStreamServer) readIdentity(b buffer.Buffer, readOffset int64, out bytestream.ByteStream_ReadServer) error {
	if readOffset < 0 {
		b.Discard()
		return status.Errorf(codes.InvalidArgument, "Negative read offset: %d", readOffset)
	}
	sizeBytes, err := b.GetSizeBytes()
	if err != nil {
		b.Discard()
		return err
	}
	if readOffset > sizeBytes {
		b.Discard()
		return status.Errorf(codes.InvalidArgument, "Buffer is %d bytes in size, while a read at offset %d was requested", sizeBytes, readOffset)
	}

	r := b.ToReader()
	defer r.Close()
	if _, err := io.CopyN(io.Discard, r, readOffset); err != nil {
		return err
	}
	chunk := make([]byte, s.readChunkSize)
	for {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			if err := out.Send(&bytestream.ReadResponse{Data: append([]byte(nil), chunk[:n]...)}); err != nil {
				return err
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readStreamWriter adapts the ByteStream_ReadServer to an io.Writer.
type readStreamWriter struct {
	out bytestream.ByteStream_ReadServer
}

func (w *readStreamWriter) Write(p []byte) (int, error) {
	if err := w.out.Send(&bytestream.ReadResponse{Data: append([]byte(nil), p...)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// writeStreamReader adapts the ByteStream_WriteServer to an
// io.ReadCloser, validating write offsets and stream termination.
type writeStreamReader struct {
	stream      bytestream.ByteStream_WriteServer
	nextOffset  int64
	finished    bool
	pendingData []byte
}

func (r *writeStreamReader) Read(p []byte) (int, error) {
	for len(r.pendingData) == 0 {
		if r.finished {
			request, err := r.stream.Recv()
			if err == io.EOF {
				return 0, io.EOF
			}
			if err != nil {
				return 0, err
			}
			if request.FinishWrite || len(request.Data) > 0 {
				return 0, status.Error(codes.InvalidArgument, "Client closed stream twice")
			}
			return 0, status.Error(codes.InvalidArgument, "Client sent a request after finishing the write")
		}
		request, err := r.stream.Recv()
		if err != nil {
			if err == io.EOF {
				return 0, status.Error(codes.InvalidArgument, "Client closed stream without finishing write")
			}
			return 0, err
		}
		if request.WriteOffset != r.nextOffset {
			return 0, status.Errorf(codes.InvalidArgument, "Attempted to write at offset %d, while %d was expected", request.WriteOffset, r.nextOffset)
		}
		r.nextOffset += int64(len(request.Data))
		r.finished = request.FinishWrite
		r.pendingData = request.Data
	}

	n := copy(p, r.pendingData)
	r.pendingData = r.pendingData[n:]
	return n, nil
}

func (writeStreamReader) Close() error {
	return nil
}

func (s *byteStreamServer) Write(stream bytestream.ByteStream_WriteServer) error {
	request, err := stream.Recv()
	if err != nil {
		if err == io.EOF {
			return status.Error(codes.InvalidArgument, "Client closed stream without sending an initial request")
		}
		return err
	}
	blobDigest, compressor, err := digest.NewDigestFromByteStreamWritePath(request.ResourceName)
	if err != nil {
		return err
	}
	if request.WriteOffset != 0 {
		return status.Errorf(codes.InvalidArgument, "Attempted to write at offset %d, while 0 was expected", request.WriteOffset)
	}
	r := &writeStreamReader{
		stream:      stream,
		nextOffset:  int64(len(request.Data)),
		finished:    request.FinishWrite,
		pendingData: request.Data,
	}

	switch compressor {
	case remoteexecution.Compressor_IDENTITY:
		if err := s.blobAccess.Put(stream.Context(), blobDigest, buffer.NewCASBufferFromReader(blobDigest, r, buffer.UserProvided)); err != nil {
			return err
		}
		return stream.SendAndClose(&bytestream.WriteResponse{
			CommittedSize: blobDigest.GetSizeBytes(),
		})
	case remoteexecution.Compressor_ZSTD:
		zstdReader, err := util.NewZstdReadCloser(r)
		if err != nil {
			return err
		}
		if err := s.blobAccess.Put(stream.Context(), blobDigest, buffer.NewCASBufferFromReader(blobDigest, zstdReader, buffer.UserProvided)); err != nil {
			return err
		}
		return stream.SendAndClose(&bytestream.WriteResponse{
			CommittedSize: r.nextOffset,
		})
	default:
		return status.Errorf(codes.Unimplemented, "This service does not support uploading compression type: %s", compressor)
	}
}

func (byteStreamServer) QueryWriteStatus(ctx context.Context, in *bytestream.QueryWriteStatusRequest) (*bytestream.QueryWriteStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "This service does not support querying write status")
}
