package buffer

import (
	"bytes"
	"hash"
	"io"

	"github.com/buildbarn/bb-fleet/pkg/digest"

	"google.golang.org/protobuf/proto"
)

type casReaderBuffer struct {
	digest digest.Digest
	reader io.ReadCloser
	source Source
}

// NewCASBufferFromReader creates a buffer for an object stored in the
// Content Addressable Storage, whose contents may be obtained through a
// ReadCloser. The size and checksum are validated while reading.
func NewCASBufferFromReader(blobDigest digest.Digest, r io.ReadCloser, source Source) Buffer {
	return &casReaderBuffer{
		digest: blobDigest,
		reader: r,
		source: source,
	}
}

func (b *casReaderBuffer) GetSizeBytes() (int64, error) {
	return b.digest.GetSizeBytes(), nil
}

func (b *casReaderBuffer) IntoWriter(w io.Writer) error {
	r := b.ToReader()
	defer r.Close()
	_, err := io.Copy(w, r)
	return err
}

func (b *casReaderBuffer) ToProto(m proto.Message, maximumSizeBytes int) (proto.Message, error) {
	data, err := b.ToByteSlice(maximumSizeBytes)
	if err != nil {
		return nil, err
	}
	return NewValidatedBufferFromByteSlice(data).ToProto(m, maximumSizeBytes)
}

func (b *casReaderBuffer) ToByteSlice(maximumSizeBytes int) ([]byte, error) {
	if err := checkMaximumSize(int(b.digest.GetSizeBytes()), maximumSizeBytes); err != nil {
		b.reader.Close()
		return nil, err
	}
	var data bytes.Buffer
	data.Grow(int(b.digest.GetSizeBytes()))
	if err := b.IntoWriter(&data); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

func (b *casReaderBuffer) ToReader() io.ReadCloser {
	return &casValidatingReader{
		ReadCloser:        b.reader,
		digest:            b.digest,
		source:            b.source,
		hasher:            b.digest.NewHasher(),
		expectedSizeBytes: b.digest.GetSizeBytes(),
	}
}

func (b *casReaderBuffer) CloneCopy(maximumSizeBytes int) (Buffer, Buffer) {
	data, err := b.ToByteSlice(maximumSizeBytes)
	if err != nil {
		return NewBufferFromError(err), NewBufferFromError(err)
	}
	return NewValidatedBufferFromByteSlice(data), NewValidatedBufferFromByteSlice(data)
}

func (b *casReaderBuffer) Discard() {
	b.reader.Close()
}

// casValidatingReader computes the checksum of the data while it is
// being read. Once EOF is reached, the size and checksum are compared
// against the digest.
type casValidatingReader struct {
	io.ReadCloser
	digest            digest.Digest
	source            Source
	hasher            hash.Hash
	expectedSizeBytes int64
	sizeBytes         int64
	err               error
}

func (r *casValidatingReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.ReadCloser.Read(p)
	r.sizeBytes += int64(n)
	r.hasher.Write(p[:n])
	if r.sizeBytes > r.expectedSizeBytes {
		r.err = r.source.notifyCASTooBig(r.expectedSizeBytes, r.sizeBytes)
		return 0, r.err
	}
	if err == io.EOF {
		if r.sizeBytes != r.expectedSizeBytes {
			r.err = r.source.notifyCASSizeMismatch(r.expectedSizeBytes, r.sizeBytes)
			return 0, r.err
		}
		expectedChecksum := r.digest.GetHashBytes()
		if actualChecksum := r.hasher.Sum(nil); !bytes.Equal(expectedChecksum, actualChecksum) {
			r.err = r.source.notifyCASHashMismatch(expectedChecksum, actualChecksum)
			return 0, r.err
		}
		r.source.notifyDataValid()
		r.err = io.EOF
	} else if err != nil {
		r.err = err
	}
	return n, err
}
