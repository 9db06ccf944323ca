package buffer

import (
	"io"

	"google.golang.org/protobuf/proto"
)

// Buffer of data to be read from/written to the Action Cache (AC) or
// Content Addressable Storage (CAS).
//
// Storage backends and RPC handlers exchange data in different
// formats: byte slices, readers and unmarshaled Protobuf messages.
// Buffers convert between these representations and make sure the data
// is consistent. In the case of buffers created using
// NewProtoBufferFrom*(), data may only be extracted if it corresponds
// to a valid Protobuf message. In the case of buffers created using
// NewCASBufferFrom*(), data may only be extracted if the size and
// checksum match the digest.
//
// Of the functions below, exactly one of IntoWriter(), ToProto(),
// ToByteSlice(), ToReader() and Discard() must be called to release
// resources associated with the buffer.
type Buffer interface {
	// Return the size of the data stored in the buffer. This
	// function may fail if the buffer is in a known error state in
	// which the size of the object is unknown.
	GetSizeBytes() (int64, error)

	// Write the entire contents of the buffer into a Writer.
	IntoWriter(w io.Writer) error
	// Return the contents in the form of an unmarshaled Protobuf
	// message. If the buffer isn't already backed by a message,
	// the provided message is used to store the unmarshaled
	// message.
	ToProto(m proto.Message, maximumSizeBytes int) (proto.Message, error)
	// Return the full contents of the buffer as a byte slice.
	ToByteSlice(maximumSizeBytes int) ([]byte, error)
	// Obtain a reader that returns the entire contents of the
	// buffer.
	ToReader() io.ReadCloser
	// Obtain two handles to the same underlying object in such a
	// way that they may get copied. This function may be used when
	// buffers need to be inspected prior to returning them.
	CloneCopy(maximumSizeBytes int) (Buffer, Buffer)
	// Release the object without reading its contents.
	Discard()
}
