package cas

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
)

// ContentAddressableStorage provides typed access to a Content
// Addressable Storage (CAS), as needed by workers to populate build
// directories and to store the outputs of build actions.
type ContentAddressableStorage interface {
	GetCommand(ctx context.Context, digest digest.Digest) (*remoteexecution.Command, error)
	GetDirectory(ctx context.Context, digest digest.Digest) (*remoteexecution.Directory, error)
	GetFile(ctx context.Context, digest digest.Digest, directory filesystem.Directory, name string, isExecutable bool) error

	// DigestFile computes the digest of a file stored in a build
	// directory, so that its existence may be checked prior to
	// uploading it.
	DigestFile(directory filesystem.Directory, name string, digestFunction digest.Function) (digest.Digest, error)
	FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error)
	PutFile(ctx context.Context, digest digest.Digest, directory filesystem.Directory, name string) error
	PutMessage(ctx context.Context, digest digest.Digest, data []byte) error
}
