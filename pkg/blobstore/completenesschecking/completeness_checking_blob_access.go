package completenesschecking

import (
	"context"
	"log"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var completenessCheckingInvalidationsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "buildbarn",
		Subsystem: "blobstore",
		Name:      "completeness_checking_invalidations_total",
		Help:      "Number of action results that were removed from the Action Cache, because they referenced absent objects.",
	})

func init() {
	prometheus.MustRegister(completenessCheckingInvalidationsTotal)
}

// findMissingQueue is a helper for calling BlobAccess.FindMissing() in
// batches, as opposed to calling it for individual digests.
type findMissingQueue struct {
	context                   context.Context
	digestFunction            digest.Function
	contentAddressableStorage blobstore.BlobAccess
	batchSize                 int

	pending digest.SetBuilder
}

// deriveDigest converts a digest embedded into an action result from
// the wire format to an in-memory representation. If that fails, we
// assume that some data corruption has occurred. In that case, we
// should destroy the action result.
func (q *findMissingQueue) deriveDigest(blobDigest *remoteexecution.Digest) (digest.Digest, error) {
	derivedDigest, err := q.digestFunction.NewDigestFromProto(blobDigest)
	if err != nil {
		return digest.BadDigest, util.StatusWrapWithCode(err, codes.NotFound, "Action result contained malformed digest")
	}
	return derivedDigest, err
}

func (q *findMissingQueue) add(blobDigest *remoteexecution.Digest) error {
	if blobDigest == nil {
		return nil
	}
	derivedDigest, err := q.deriveDigest(blobDigest)
	if err != nil {
		return err
	}
	if q.pending.Length() >= q.batchSize {
		if err := q.finalize(); err != nil {
			return err
		}
		q.pending = digest.NewSetBuilder()
	}
	q.pending.Add(derivedDigest)
	return nil
}

func (q *findMissingQueue) addDirectory(directory *remoteexecution.Directory) error {
	if directory == nil {
		return nil
	}
	for _, child := range directory.Files {
		if err := q.add(child.Digest); err != nil {
			return err
		}
	}
	return nil
}

// finalize by checking the last batch of digests for existence.
func (q *findMissingQueue) finalize() error {
	missing, err := q.contentAddressableStorage.FindMissing(q.context, q.pending.Build())
	if err != nil {
		return util.StatusWrap(err, "Failed to determine existence of child objects")
	}
	if d, ok := missing.First(); ok {
		return status.Errorf(codes.NotFound, "Object %s referenced by the action result is not present in the Content Addressable Storage", d)
	}
	return nil
}

type completenessCheckingBlobAccess struct {
	blobstore.BlobAccess
	contentAddressableStorage blobstore.BlobAccess
	batchSize                 int
	maximumMessageSizeBytes   int
}

// NewCompletenessCheckingBlobAccess creates a wrapper around an Action
// Cache (AC) that ensures that ActionResult entries are only returned
// in case all objects referenced by the ActionResult are present
// within the Content Addressable Storage (CAS). In case one of the
// referenced objects is absent, the ActionResult entry is removed from
// the Action Cache and treated as if non-existent.
//
// Clients rely on a single call to GetActionResult() to determine
// whether an action needs to be rebuilt. Returning entries whose
// outputs have been evicted would cause builds to fail when the outputs
// are downloaded.
func NewCompletenessCheckingBlobAccess(actionCache, contentAddressableStorage blobstore.BlobAccess, batchSize, maximumMessageSizeBytes int) blobstore.BlobAccess {
	return &completenessCheckingBlobAccess{
		BlobAccess:                actionCache,
		contentAddressableStorage: contentAddressableStorage,
		batchSize:                 batchSize,
		maximumMessageSizeBytes:   maximumMessageSizeBytes,
	}
}

func (ba *completenessCheckingBlobAccess) checkCompleteness(ctx context.Context, digestFunction digest.Function, actionResult *remoteexecution.ActionResult) error {
	findMissingQueue := findMissingQueue{
		context:                   ctx,
		digestFunction:            digestFunction,
		contentAddressableStorage: ba.contentAddressableStorage,
		batchSize:                 ba.batchSize,
		pending:                   digest.NewSetBuilder(),
	}

	// Check the existence of output directories, even though they
	// are loaded below. Loading them does not necessarily cause
	// them to be touched.
	for _, outputFile := range actionResult.OutputFiles {
		if err := findMissingQueue.add(outputFile.Digest); err != nil {
			return err
		}
	}
	for _, outputDirectory := range actionResult.OutputDirectories {
		if err := findMissingQueue.add(outputDirectory.TreeDigest); err != nil {
			return err
		}
	}
	if err := findMissingQueue.add(actionResult.StdoutDigest); err != nil {
		return err
	}
	if err := findMissingQueue.add(actionResult.StderrDigest); err != nil {
		return err
	}

	// Iterate over all digests contained within output directories
	// referenced by the ActionResult.
	for _, outputDirectory := range actionResult.OutputDirectories {
		treeDigest, err := findMissingQueue.deriveDigest(outputDirectory.TreeDigest)
		if err != nil {
			return err
		}
		treeMessage, err := ba.contentAddressableStorage.Get(ctx, treeDigest).ToProto(&remoteexecution.Tree{}, ba.maximumMessageSizeBytes)
		if err != nil {
			if code := status.Code(err); code == codes.InvalidArgument || code == codes.Internal {
				return util.StatusWrapfWithCode(err, codes.NotFound, "Failed to fetch output directory %#v", outputDirectory.Path)
			}
			return util.StatusWrapf(err, "Failed to fetch output directory %#v", outputDirectory.Path)
		}
		tree := treeMessage.(*remoteexecution.Tree)
		if err := findMissingQueue.addDirectory(tree.Root); err != nil {
			return err
		}
		for _, child := range tree.Children {
			if err := findMissingQueue.addDirectory(child); err != nil {
				return err
			}
		}
	}
	return findMissingQueue.finalize()
}

func (ba *completenessCheckingBlobAccess) Get(ctx context.Context, actionDigest digest.Digest) buffer.Buffer {
	b1, b2 := ba.BlobAccess.Get(ctx, actionDigest).CloneCopy(ba.maximumMessageSizeBytes)
	actionResult, err := b1.ToProto(&remoteexecution.ActionResult{}, ba.maximumMessageSizeBytes)
	if err != nil {
		b2.Discard()
		return buffer.NewBufferFromError(err)
	}
	if err := ba.checkCompleteness(ctx, actionDigest.GetDigestFunction(), actionResult.(*remoteexecution.ActionResult)); err != nil {
		b2.Discard()
		if status.Code(err) == codes.NotFound {
			completenessCheckingInvalidationsTotal.Inc()
			if errDelete := ba.BlobAccess.Delete(ctx, actionDigest); errDelete != nil {
				log.Printf("Failed to remove incomplete action result %s: %s", actionDigest, errDelete)
			}
		}
		return buffer.NewBufferFromError(err)
	}
	return b2
}
