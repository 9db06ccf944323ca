package util

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// NewZstdReadCloser decompresses the data of a blob transferred using
// Compressor_ZSTD. Closing the returned reader closes the decoder and
// the underlying reader.
//
// Every stream is decoded by a single goroutine, as the number of
// concurrent transfers already bounds parallelism.
func NewZstdReadCloser(underlyingReader io.ReadCloser) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(underlyingReader, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &zstdReadCloser{Decoder: decoder, underlyingReader: underlyingReader}, nil
}

type zstdReadCloser struct {
	*zstd.Decoder

	underlyingReader io.ReadCloser
}

func (r *zstdReadCloser) Close() error {
	r.Decoder.Close()
	return r.underlyingReader.Close()
}

// NewZstdWriter compresses the data of a blob that is transferred
// using Compressor_ZSTD. Close() must be called to flush the final
// frame. It does not close the underlying writer.
func NewZstdWriter(underlyingWriter io.Writer) (*zstd.Encoder, error) {
	return zstd.NewWriter(underlyingWriter, zstd.WithEncoderConcurrency(1))
}
