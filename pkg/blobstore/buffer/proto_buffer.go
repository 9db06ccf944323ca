package buffer

import (
	"bytes"
	"io"
	"sync"

	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
)

// protoBuffer is backed by an unmarshaled Protobuf message. The
// marshaled form is computed on demand and cached, as buffers may be
// cloned and read multiple times.
type protoBuffer struct {
	message proto.Message

	lock sync.Mutex
	data []byte
	err  error
}

// NewProtoBufferFromProto creates a buffer for an object that contains
// a Protobuf message that was created in memory.
func NewProtoBufferFromProto(m proto.Message, source Source) Buffer {
	source.notifyDataValid()
	return &protoBuffer{message: m}
}

func (b *protoBuffer) getData() ([]byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.data == nil && b.err == nil {
		data, err := proto.MarshalOptions{Deterministic: true}.Marshal(b.message)
		if err != nil {
			b.err = util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to marshal message")
		} else {
			b.data = data
		}
	}
	return b.data, b.err
}

func (b *protoBuffer) GetSizeBytes() (int64, error) {
	data, err := b.getData()
	return int64(len(data)), err
}

func (b *protoBuffer) IntoWriter(w io.Writer) error {
	data, err := b.getData()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (b *protoBuffer) ToProto(m proto.Message, maximumSizeBytes int) (proto.Message, error) {
	data, err := b.getData()
	if err != nil {
		return nil, err
	}
	if err := checkMaximumSize(len(data), maximumSizeBytes); err != nil {
		return nil, err
	}
	return b.message, nil
}

func (b *protoBuffer) ToByteSlice(maximumSizeBytes int) ([]byte, error) {
	data, err := b.getData()
	if err != nil {
		return nil, err
	}
	if err := checkMaximumSize(len(data), maximumSizeBytes); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *protoBuffer) ToReader() io.ReadCloser {
	data, err := b.getData()
	if err != nil {
		return newErrorReader(err)
	}
	return io.NopCloser(bytes.NewReader(data))
}

func (b *protoBuffer) CloneCopy(maximumSizeBytes int) (Buffer, Buffer) {
	return b, b
}

func (*protoBuffer) Discard() {}
