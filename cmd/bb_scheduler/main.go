package main

import (
	"context"
	"os"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	auth_configuration "github.com/buildbarn/bb-fleet/pkg/auth/configuration"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	blobstore_configuration "github.com/buildbarn/bb-fleet/pkg/blobstore/configuration"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/grpcservers"
	"github.com/buildbarn/bb-fleet/pkg/builder"
	"github.com/buildbarn/bb-fleet/pkg/capabilities"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/configuration/bb_scheduler"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/global"
	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/scheduler"
	"github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"google.golang.org/genproto/googleapis/bytestream"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func main() {
	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		if len(os.Args) != 2 {
			return status.Error(codes.InvalidArgument, "Usage: bb_scheduler bb_scheduler.jsonnet")
		}
		var configuration bb_scheduler.ApplicationConfiguration
		if err := util.UnmarshalConfigurationFromFile(os.Args[1], &configuration); err != nil {
			return util.StatusWrapf(err, "Failed to read configuration from %s", os.Args[1])
		}
		grpcClientFactory, err := global.ApplyConfiguration(configuration.Global, dependenciesGroup)
		if err != nil {
			return util.StatusWrap(err, "Failed to apply global configuration options")
		}
		maximumMessageSizeBytes := configuration.MaximumMessageSizeBytes
		if maximumMessageSizeBytes <= 0 {
			maximumMessageSizeBytes = 16 << 20
		}

		// Storage access. The scheduler itself accesses storage
		// without being subject to authorization.
		contentAddressableStorage, actionCache, err := blobstore_configuration.NewCASAndACBlobAccessFromConfiguration(
			configuration.Blobstore,
			grpcClientFactory,
			maximumMessageSizeBytes)
		if err != nil {
			return util.StatusWrap(err, "Failed to create storage backends")
		}

		casAuthorizers := configuration.ContentAddressableStorageAuthorizers
		if casAuthorizers == nil {
			casAuthorizers = &bb_scheduler.ScannableAuthorizersConfiguration{}
		}
		clientContentAddressableStorage, err := newScannableAuthorizingBlobAccess(contentAddressableStorage, casAuthorizers)
		if err != nil {
			return util.StatusWrap(err, "Failed to create Content Addressable Storage authorizers")
		}

		acAuthorizers := configuration.ActionCacheAuthorizers
		if acAuthorizers == nil {
			acAuthorizers = &bb_scheduler.NonScannableAuthorizersConfiguration{}
		}
		clientActionCache, acPutAuthorizer, err := newNonScannableAuthorizingBlobAccess(actionCache, acAuthorizers)
		if err != nil {
			return util.StatusWrap(err, "Failed to create Action Cache authorizers")
		}
		trustPolicy, err := grpcservers.NewTrustPolicyFromConfiguration(configuration.ActionCacheTrustPolicy)
		if err != nil {
			return util.StatusWrap(err, "Invalid Action Cache trust policy")
		}

		executeAuthorizer, err := newAuthorizerOrAllow(configuration.ExecuteAuthorizer)
		if err != nil {
			return util.StatusWrap(err, "Failed to create Execute() authorizer")
		}

		buildQueueConfiguration := configuration.BuildQueue
		if buildQueueConfiguration == nil {
			buildQueueConfiguration = &scheduler.InMemoryBuildQueueConfiguration{}
		}
		inMemoryBuildQueue := scheduler.NewInMemoryBuildQueue(
			contentAddressableStorage,
			actionCache,
			clock.SystemClock,
			uuid.NewRandom,
			buildQueueConfiguration,
			maximumMessageSizeBytes,
			util.NewPrefixingErrorLogger(util.DefaultErrorLogger, "Build queue"))
		dependenciesGroup.Go(inMemoryBuildQueue.RunSweeper)
		buildQueue := builder.NewTracingBuildQueue(
			builder.NewAuthorizingBuildQueue(inMemoryBuildQueue, executeAuthorizer))

		// Clients that may not write into the Action Cache are
		// told so through the capabilities, unless such writes
		// are merely audited.
		var cacheCapabilitiesProvider capabilities.Provider = capabilities.NewCacheCapabilitiesProvider(int64(maximumMessageSizeBytes))
		if trustPolicy == grpcservers.TrustPolicyReject {
			cacheCapabilitiesProvider = capabilities.NewUpdateEnabledClearingProvider(cacheCapabilitiesProvider, acPutAuthorizer)
		}
		capabilitiesServer := capabilities.NewServer(
			capabilities.NewMergingProvider([]capabilities.Provider{
				cacheCapabilitiesProvider,
				buildQueue,
			}))

		if err := bb_grpc.NewServersFromConfigurationAndServe(
			configuration.ClientGrpcServers,
			func(s grpc.ServiceRegistrar) {
				grpcServer := s.(*grpc.Server)
				remoteexecution.RegisterActionCacheServer(
					s,
					grpcservers.NewActionCacheServer(
						clientActionCache,
						contentAddressableStorage,
						acPutAuthorizer,
						trustPolicy,
						maximumMessageSizeBytes))
				remoteexecution.RegisterContentAddressableStorageServer(
					s,
					grpcservers.NewContentAddressableStorageServer(
						clientContentAddressableStorage,
						int64(maximumMessageSizeBytes)))
				bytestream.RegisterByteStreamServer(
					grpcServer,
					grpcservers.NewByteStreamServer(
						clientContentAddressableStorage,
						1<<16))
				remoteexecution.RegisterCapabilitiesServer(s, capabilitiesServer)
				remoteexecution.RegisterExecutionServer(s, buildQueue)
				longrunningpb.RegisterOperationsServer(grpcServer, buildQueue)
			},
			siblingsGroup,
		); err != nil {
			return util.StatusWrap(err, "gRPC server failure")
		}

		// Workers synchronize through a separate HTTP server, so
		// that it can be shielded from clients.
		router := mux.NewRouter()
		remoteworker.RegisterHTTPHandler(router, inMemoryBuildQueue)
		if err := bb_http.NewServersFromConfigurationAndServe(
			configuration.WorkerHttpServers,
			bb_http.NewMetricsHandler(router, "WorkerHTTPServer"),
			siblingsGroup,
		); err != nil {
			return util.StatusWrap(err, "Failed to launch worker HTTP server")
		}
		return nil
	})
}

func newAuthorizerOrAllow(configuration *auth_configuration.AuthorizerConfiguration) (auth.Authorizer, error) {
	if configuration == nil {
		return auth.NewStaticAuthorizer(func(digest.InstanceName) bool { return true }), nil
	}
	return auth_configuration.NewAuthorizerFromConfiguration(configuration)
}

func newScannableAuthorizingBlobAccess(base blobstore.BlobAccess, configuration *bb_scheduler.ScannableAuthorizersConfiguration) (blobstore.BlobAccess, error) {
	getAuthorizer, err := newAuthorizerOrAllow(configuration.Get)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to create Get() authorizer")
	}
	putAuthorizer, err := newAuthorizerOrAllow(configuration.Put)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to create Put() authorizer")
	}
	findMissingAuthorizer, err := newAuthorizerOrAllow(configuration.FindMissing)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to create FindMissing() authorizer")
	}
	return blobstore.NewAuthorizingBlobAccess(base, getAuthorizer, putAuthorizer, findMissingAuthorizer), nil
}

// newNonScannableAuthorizingBlobAccess only applies the Get()
// authorizer to the Action Cache. The Put() authorizer is returned
// separately, as it is applied by the Action Cache server according to
// its trust policy.
func newNonScannableAuthorizingBlobAccess(base blobstore.BlobAccess, configuration *bb_scheduler.NonScannableAuthorizersConfiguration) (blobstore.BlobAccess, auth.Authorizer, error) {
	getAuthorizer, err := newAuthorizerOrAllow(configuration.Get)
	if err != nil {
		return nil, nil, util.StatusWrap(err, "Failed to create Get() authorizer")
	}
	putAuthorizer, err := newAuthorizerOrAllow(configuration.Put)
	if err != nil {
		return nil, nil, util.StatusWrap(err, "Failed to create Put() authorizer")
	}
	allowAuthorizer := auth.NewStaticAuthorizer(func(digest.InstanceName) bool { return true })
	return blobstore.NewAuthorizingBlobAccess(base, getAuthorizer, allowAuthorizer, allowAuthorizer), putAuthorizer, nil
}
