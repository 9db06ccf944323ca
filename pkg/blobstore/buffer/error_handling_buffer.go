package buffer

import (
	"io"

	"google.golang.org/protobuf/proto"
)

// ErrorHandler is invoked by buffers created through WithErrorHandler()
// when an operation on the underlying buffer fails. It may translate
// the error or perform cleanup in the storage backend.
type ErrorHandler func(err error) error

type errorHandlingBuffer struct {
	base         Buffer
	errorHandler ErrorHandler
}

// WithErrorHandler decorates a Buffer, so that all errors it returns
// are passed through an ErrorHandler.
func WithErrorHandler(b Buffer, errorHandler ErrorHandler) Buffer {
	return &errorHandlingBuffer{
		base:         b,
		errorHandler: errorHandler,
	}
}

func (b *errorHandlingBuffer) GetSizeBytes() (int64, error) {
	sizeBytes, err := b.base.GetSizeBytes()
	if err != nil {
		return 0, b.errorHandler(err)
	}
	return sizeBytes, nil
}

func (b *errorHandlingBuffer) IntoWriter(w io.Writer) error {
	if err := b.base.IntoWriter(w); err != nil {
		return b.errorHandler(err)
	}
	return nil
}

func (b *errorHandlingBuffer) ToProto(m proto.Message, maximumSizeBytes int) (proto.Message, error) {
	mResult, err := b.base.ToProto(m, maximumSizeBytes)
	if err != nil {
		return nil, b.errorHandler(err)
	}
	return mResult, nil
}

func (b *errorHandlingBuffer) ToByteSlice(maximumSizeBytes int) ([]byte, error) {
	data, err := b.base.ToByteSlice(maximumSizeBytes)
	if err != nil {
		return nil, b.errorHandler(err)
	}
	return data, nil
}

func (b *errorHandlingBuffer) ToReader() io.ReadCloser {
	return &errorHandlingReader{
		ReadCloser:   b.base.ToReader(),
		errorHandler: b.errorHandler,
	}
}

func (b *errorHandlingBuffer) CloneCopy(maximumSizeBytes int) (Buffer, Buffer) {
	b1, b2 := b.base.CloneCopy(maximumSizeBytes)
	return WithErrorHandler(b1, b.errorHandler), WithErrorHandler(b2, b.errorHandler)
}

func (b *errorHandlingBuffer) Discard() {
	b.base.Discard()
}

type errorHandlingReader struct {
	io.ReadCloser
	errorHandler ErrorHandler
	err          error
}

func (r *errorHandlingReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		r.err = r.errorHandler(err)
		return n, r.err
	}
	return n, err
}
