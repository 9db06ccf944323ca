package buffer

import (
	"io"

	"google.golang.org/protobuf/proto"
)

type errorBuffer struct {
	err error
}

// NewBufferFromError creates a Buffer that returns a fixed error
// response for all operations.
func NewBufferFromError(err error) Buffer {
	return errorBuffer{err: err}
}

func (b errorBuffer) GetSizeBytes() (int64, error) {
	return 0, b.err
}

func (b errorBuffer) IntoWriter(w io.Writer) error {
	return b.err
}

func (b errorBuffer) ToProto(m proto.Message, maximumSizeBytes int) (proto.Message, error) {
	return nil, b.err
}

func (b errorBuffer) ToByteSlice(maximumSizeBytes int) ([]byte, error) {
	return nil, b.err
}

func (b errorBuffer) ToReader() io.ReadCloser {
	return newErrorReader(b.err)
}

func (b errorBuffer) CloneCopy(maximumSizeBytes int) (Buffer, Buffer) {
	return b, b
}

func (errorBuffer) Discard() {}

type errorReader struct {
	err error
}

func newErrorReader(err error) io.ReadCloser {
	return errorReader{err: err}
}

func (r errorReader) Read(p []byte) (int, error) {
	return 0, r.err
}

func (errorReader) Close() error {
	return nil
}
