package cas

import (
	"context"
	"io"
	"os"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/util"
)

type blobAccessContentAddressableStorage struct {
	blobAccess              blobstore.BlobAccess
	maximumMessageSizeBytes int
}

// NewBlobAccessContentAddressableStorage creates a
// ContentAddressableStorage that reads and writes Content Addressable
// Storage (CAS) objects from a BlobAccess based store.
func NewBlobAccessContentAddressableStorage(blobAccess blobstore.BlobAccess, maximumMessageSizeBytes int) ContentAddressableStorage {
	return &blobAccessContentAddressableStorage{
		blobAccess:              blobAccess,
		maximumMessageSizeBytes: maximumMessageSizeBytes,
	}
}

func (cas *blobAccessContentAddressableStorage) GetCommand(ctx context.Context, digest digest.Digest) (*remoteexecution.Command, error) {
	m, err := cas.blobAccess.Get(ctx, digest).ToProto(&remoteexecution.Command{}, cas.maximumMessageSizeBytes)
	if err != nil {
		return nil, err
	}
	return m.(*remoteexecution.Command), nil
}

func (cas *blobAccessContentAddressableStorage) GetDirectory(ctx context.Context, digest digest.Digest) (*remoteexecution.Directory, error) {
	m, err := cas.blobAccess.Get(ctx, digest).ToProto(&remoteexecution.Directory{}, cas.maximumMessageSizeBytes)
	if err != nil {
		return nil, err
	}
	return m.(*remoteexecution.Directory), nil
}

func (cas *blobAccessContentAddressableStorage) GetFile(ctx context.Context, digest digest.Digest, directory filesystem.Directory, name string, isExecutable bool) error {
	var mode os.FileMode = 0o444
	if isExecutable {
		mode = 0o555
	}
	w, err := directory.OpenWrite(name, filesystem.CreateExcl(mode))
	if err != nil {
		return util.StatusWrapf(err, "Failed to create file %#v", name)
	}

	err = cas.blobAccess.Get(ctx, digest).IntoWriter(w)
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = util.StatusWrapf(closeErr, "Failed to close file %#v", name)
	}
	if err != nil {
		// Ensure no traces are left behind upon failure.
		directory.Remove(name)
		return err
	}
	return directory.Chtimes(name, filesystem.DeterministicFileModificationTimestamp, filesystem.DeterministicFileModificationTimestamp)
}

func (cas *blobAccessContentAddressableStorage) DigestFile(directory filesystem.Directory, name string, digestFunction digest.Function) (digest.Digest, error) {
	f, err := directory.OpenRead(name)
	if err != nil {
		return digest.BadDigest, err
	}
	defer f.Close()

	sizeBytes, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return digest.BadDigest, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return digest.BadDigest, err
	}
	generator := digestFunction.NewGenerator(sizeBytes)
	if _, err := io.Copy(generator, f); err != nil {
		return digest.BadDigest, err
	}
	return generator.Sum(), nil
}

func (cas *blobAccessContentAddressableStorage) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	return cas.blobAccess.FindMissing(ctx, digests)
}

func (cas *blobAccessContentAddressableStorage) PutFile(ctx context.Context, digest digest.Digest, directory filesystem.Directory, name string) error {
	f, err := directory.OpenRead(name)
	if err != nil {
		return err
	}
	// The buffer closes the file once it has been consumed. The file
	// may have been modified since its digest was computed, which
	// causes the upload to fail validation.
	return cas.blobAccess.Put(ctx, digest, buffer.NewCASBufferFromReader(digest, f, buffer.UserProvided))
}

func (cas *blobAccessContentAddressableStorage) PutMessage(ctx context.Context, digest digest.Digest, data []byte) error {
	return cas.blobAccess.Put(ctx, digest, buffer.NewCASBufferFromByteSlice(digest, data, buffer.UserProvided))
}
