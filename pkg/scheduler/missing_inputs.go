package scheduler

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"golang.org/x/sync/errgroup"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Number of Directory messages that are fetched from the Content
// Addressable Storage in parallel while checking an input root.
const directoryFetchConcurrency = 16

// findMissingInputs returns the digests of the Command, Directory and
// file objects referenced by an action that are absent from the
// Content Addressable Storage. Directories are fetched level by level.
// The contents of directories that are missing cannot be inspected,
// meaning that the caller only learns about their children once they
// are uploaded.
func findMissingInputs(ctx context.Context, contentAddressableStorage blobstore.BlobAccess, commandDigest, inputRootDigest digest.Digest, maximumMessageSizeBytes int) ([]digest.Digest, error) {
	digestFunction := inputRootDigest.GetDigestFunction()
	emptyDigest := digestFunction.GetEmptyDigest()
	blobs := digest.NewSetBuilder().Add(commandDigest)
	var missing []digest.Digest

	seen := map[digest.Digest]struct{}{inputRootDigest: {}}
	pending := []digest.Digest{inputRootDigest}
	for len(pending) > 0 {
		directories := make([]*remoteexecution.Directory, len(pending))
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(directoryFetchConcurrency)
		for i, directoryDigest := range pending {
			if directoryDigest == emptyDigest {
				directories[i] = &remoteexecution.Directory{}
				continue
			}
			group.Go(func() error {
				directory, err := contentAddressableStorage.Get(groupCtx, directoryDigest).ToProto(&remoteexecution.Directory{}, maximumMessageSizeBytes)
				if err != nil {
					if status.Code(err) == codes.NotFound {
						return nil
					}
					return util.StatusWrapf(err, "Failed to obtain input directory %#v", directoryDigest.String())
				}
				directories[i] = directory.(*remoteexecution.Directory)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}

		var next []digest.Digest
		for i, directory := range directories {
			if directory == nil {
				missing = append(missing, pending[i])
				continue
			}
			for _, file := range directory.Files {
				fileDigest, err := digestFunction.NewDigestFromProto(file.Digest)
				if err != nil {
					return nil, util.StatusWrapf(err, "Invalid digest for input file %#v", file.Name)
				}
				blobs.Add(fileDigest)
			}
			for _, child := range directory.Directories {
				childDigest, err := digestFunction.NewDigestFromProto(child.Digest)
				if err != nil {
					return nil, util.StatusWrapf(err, "Invalid digest for input directory %#v", child.Name)
				}
				if _, ok := seen[childDigest]; !ok {
					seen[childDigest] = struct{}{}
					next = append(next, childDigest)
				}
			}
		}
		pending = next
	}

	missingBlobs, err := contentAddressableStorage.FindMissing(ctx, blobs.Build().RemoveEmptyBlob())
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to determine existence of input files")
	}
	return append(missing, missingBlobs.Items()...), nil
}
