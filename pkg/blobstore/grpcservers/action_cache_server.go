package grpcservers

import (
	"context"
	"fmt"
	"log"
	"sync"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	actionCacheServerPrometheusMetrics sync.Once

	actionCacheServerUntrustedUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "blobstore",
			Name:      "action_cache_server_untrusted_updates_total",
			Help:      "Number of action results written by clients that are not trusted to do so.",
		},
		[]string{"instance_name"})
)

// TrustPolicy determines how the Action Cache handles writes from
// clients that are not authorized to store action results.
type TrustPolicy int

const (
	// TrustPolicyReject causes untrusted writes to fail with
	// PERMISSION_DENIED.
	TrustPolicyReject TrustPolicy = iota
	// TrustPolicyAudit causes untrusted writes to be accepted. They
	// are logged and counted, so that cache poisoning attempts can
	// be investigated afterwards.
	TrustPolicyAudit
)

// NewTrustPolicyFromConfiguration returns the trust policy that is
// selected by name in a configuration file. The empty name selects
// REJECT.
func NewTrustPolicyFromConfiguration(name string) (TrustPolicy, error) {
	switch name {
	case "", "REJECT":
		return TrustPolicyReject, nil
	case "AUDIT":
		return TrustPolicyAudit, nil
	default:
		return TrustPolicyReject, status.Errorf(codes.InvalidArgument, "Unknown trust policy %#v", name)
	}
}

type actionCacheServer struct {
	actionCache               blobstore.BlobAccess
	contentAddressableStorage blobstore.BlobAccess
	updateAuthorizer          auth.Authorizer
	trustPolicy             TrustPolicy
	maximumMessageSizeBytes int
}

// NewActionCacheServer creates a gRPC service for serving the contents
// of the Action Cache (AC). Writes are checked against an Authorizer,
// whose verdict is applied according to a TrustPolicy. Action results
// are only stored if all of the outputs they reference are present in
// the Content Addressable Storage.
func NewActionCacheServer(actionCache, contentAddressableStorage blobstore.BlobAccess, updateAuthorizer auth.Authorizer, trustPolicy TrustPolicy, maximumMessageSizeBytes int) remoteexecution.ActionCacheServer {
	actionCacheServerPrometheusMetrics.Do(func() {
		prometheus.MustRegister(actionCacheServerUntrustedUpdates)
	})

	return &actionCacheServer{
		actionCache:               actionCache,
		contentAddressableStorage: contentAddressableStorage,
		updateAuthorizer:          updateAuthorizer,
		trustPolicy:               trustPolicy,
		maximumMessageSizeBytes:   maximumMessageSizeBytes,
	}
}

func (s *actionCacheServer) GetActionResult(ctx context.Context, in *remoteexecution.GetActionResultRequest) (*remoteexecution.ActionResult, error) {
	digestFunction, err := getDigestFunction(in.InstanceName, in.DigestFunction, in.ActionDigest)
	if err != nil {
		return nil, err
	}
	actionDigest, err := digestFunction.NewDigestFromProto(in.ActionDigest)
	if err != nil {
		return nil, util.StatusWrap(err, "Invalid action digest")
	}
	actionResult, err := s.actionCache.Get(ctx, actionDigest).ToProto(&remoteexecution.ActionResult{}, s.maximumMessageSizeBytes)
	if err != nil {
		return nil, err
	}
	return actionResult.(*remoteexecution.ActionResult), nil
}

func (s *actionCacheServer) UpdateActionResult(ctx context.Context, in *remoteexecution.UpdateActionResultRequest) (*remoteexecution.ActionResult, error) {
	if in.ActionResult == nil {
		return nil, status.Error(codes.InvalidArgument, "No action result provided")
	}
	digestFunction, err := getDigestFunction(in.InstanceName, in.DigestFunction, in.ActionDigest)
	if err != nil {
		return nil, err
	}
	actionDigest, err := digestFunction.NewDigestFromProto(in.ActionDigest)
	if err != nil {
		return nil, util.StatusWrap(err, "Invalid action digest")
	}

	instanceName := actionDigest.GetInstanceName()
	if err := auth.AuthorizeSingleInstanceName(ctx, s.updateAuthorizer, instanceName); err != nil {
		switch s.trustPolicy {
		case TrustPolicyAudit:
			client, _ := auth.AuthenticationMetadataFromContext(ctx).GetPublic()
			log.Printf("Accepting untrusted action result for %s from client %#v: %s", actionDigest, client, err)
			actionCacheServerUntrustedUpdates.WithLabelValues(instanceName.String()).Inc()
		default:
			return nil, util.StatusWrapWithCode(err, codes.PermissionDenied, "Client is not permitted to store action results")
		}
	}

	if err := s.checkOutputsPresent(ctx, digestFunction, in.ActionResult); err != nil {
		return nil, err
	}
	if err := s.actionCache.Put(ctx, actionDigest, buffer.NewProtoBufferFromProto(in.ActionResult, buffer.UserProvided)); err != nil {
		return nil, err
	}
	return in.ActionResult, nil
}

// checkOutputsPresent returns FAILED_PRECONDITION if any of the output
// files, output directory trees or logs referenced by an action result
// are absent from the Content Addressable Storage.
func (s *actionCacheServer) checkOutputsPresent(ctx context.Context, digestFunction digest.Function, actionResult *remoteexecution.ActionResult) error {
	outputs := digest.NewSetBuilder()
	addOutput := func(blobDigest *remoteexecution.Digest, description string) error {
		if blobDigest == nil {
			return nil
		}
		d, err := digestFunction.NewDigestFromProto(blobDigest)
		if err != nil {
			return util.StatusWrapf(err, "Invalid digest for %s", description)
		}
		outputs.Add(d)
		return nil
	}
	for _, outputFile := range actionResult.OutputFiles {
		if err := addOutput(outputFile.Digest, fmt.Sprintf("output file %#v", outputFile.Path)); err != nil {
			return err
		}
	}
	for _, outputDirectory := range actionResult.OutputDirectories {
		if err := addOutput(outputDirectory.TreeDigest, fmt.Sprintf("output directory %#v", outputDirectory.Path)); err != nil {
			return err
		}
	}
	if err := addOutput(actionResult.StdoutDigest, "standard output"); err != nil {
		return err
	}
	if err := addOutput(actionResult.StderrDigest, "standard error"); err != nil {
		return err
	}

	digests := outputs.Build().RemoveEmptyBlob()
	if digests.Empty() {
		return nil
	}
	missing, err := s.contentAddressableStorage.FindMissing(ctx, digests)
	if err != nil {
		return util.StatusWrap(err, "Failed to determine existence of outputs")
	}
	if !missing.Empty() {
		return blobstore.NewMissingBlobsError(missing.Items(), "action result")
	}
	return nil
}
