package buffer

import (
	"bytes"
	"io"

	"github.com/buildbarn/bb-fleet/pkg/digest"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

type validatedByteSliceBuffer struct {
	data []byte
}

// NewValidatedBufferFromByteSlice creates a Buffer that is backed by a
// slice of bytes. No checking of data integrity is performed, as it is
// assumed that the data stored in the slice is valid.
func NewValidatedBufferFromByteSlice(data []byte) Buffer {
	return validatedByteSliceBuffer{data: data}
}

// NewCASBufferFromByteSlice creates a buffer for an object stored in
// the Content Addressable Storage, backed by a byte slice. The size and
// checksum are validated immediately.
func NewCASBufferFromByteSlice(blobDigest digest.Digest, data []byte, source Source) Buffer {
	expectedSizeBytes := blobDigest.GetSizeBytes()
	if actualSizeBytes := int64(len(data)); expectedSizeBytes != actualSizeBytes {
		return NewBufferFromError(source.notifyCASSizeMismatch(expectedSizeBytes, actualSizeBytes))
	}

	hasher := blobDigest.NewHasher()
	hasher.Write(data)
	expectedChecksum := blobDigest.GetHashBytes()
	if actualChecksum := hasher.Sum(nil); !bytes.Equal(expectedChecksum, actualChecksum) {
		return NewBufferFromError(source.notifyCASHashMismatch(expectedChecksum, actualChecksum))
	}

	source.notifyDataValid()
	return NewValidatedBufferFromByteSlice(data)
}

// NewProtoBufferFromByteSlice creates a buffer for an object that
// contains a marshaled Protobuf message, such as an ActionResult stored
// in the Action Cache. The message is unmarshaled immediately, so that
// invalid messages are rejected up front.
func NewProtoBufferFromByteSlice(m proto.Message, data []byte, source Source) Buffer {
	if err := proto.Unmarshal(data, m); err != nil {
		return NewBufferFromError(source.notifyProtoUnmarshalFailure(err))
	}
	source.notifyDataValid()
	return &protoBuffer{
		message: m,
		data:    data,
	}
}

func checkMaximumSize(sizeBytes, maximumSizeBytes int) error {
	if sizeBytes > maximumSizeBytes {
		return status.Errorf(codes.InvalidArgument, "Buffer is %d bytes in size, while a maximum of %d bytes is permitted", sizeBytes, maximumSizeBytes)
	}
	return nil
}

func (b validatedByteSliceBuffer) GetSizeBytes() (int64, error) {
	return int64(len(b.data)), nil
}

func (b validatedByteSliceBuffer) IntoWriter(w io.Writer) error {
	_, err := w.Write(b.data)
	return err
}

func (b validatedByteSliceBuffer) ToProto(m proto.Message, maximumSizeBytes int) (proto.Message, error) {
	if err := checkMaximumSize(len(b.data), maximumSizeBytes); err != nil {
		return nil, err
	}
	if err := proto.Unmarshal(b.data, m); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Failed to unmarshal message: %s", err)
	}
	return m, nil
}

func (b validatedByteSliceBuffer) ToByteSlice(maximumSizeBytes int) ([]byte, error) {
	if err := checkMaximumSize(len(b.data), maximumSizeBytes); err != nil {
		return nil, err
	}
	return b.data, nil
}

func (b validatedByteSliceBuffer) ToReader() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b.data))
}

func (b validatedByteSliceBuffer) CloneCopy(maximumSizeBytes int) (Buffer, Buffer) {
	return b, b
}

func (validatedByteSliceBuffer) Discard() {}
