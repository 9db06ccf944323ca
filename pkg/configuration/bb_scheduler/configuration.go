package bb_scheduler

import (
	auth_configuration "github.com/buildbarn/bb-fleet/pkg/auth/configuration"
	blobstore_configuration "github.com/buildbarn/bb-fleet/pkg/blobstore/configuration"
	"github.com/buildbarn/bb-fleet/pkg/global"
	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	"github.com/buildbarn/bb-fleet/pkg/scheduler"
)

// ScannableAuthorizersConfiguration contains the authorizers of a
// storage backend that permits enumerating its contents through
// FindMissingBlobs().
type ScannableAuthorizersConfiguration struct {
	Get         *auth_configuration.AuthorizerConfiguration `json:"get"`
	Put         *auth_configuration.AuthorizerConfiguration `json:"put"`
	FindMissing *auth_configuration.AuthorizerConfiguration `json:"findMissing"`
}

// NonScannableAuthorizersConfiguration contains the authorizers of a
// storage backend whose contents can only be accessed by key.
type NonScannableAuthorizersConfiguration struct {
	Get *auth_configuration.AuthorizerConfiguration `json:"get"`
	Put *auth_configuration.AuthorizerConfiguration `json:"put"`
}

// ApplicationConfiguration is the top-level configuration of
// bb_scheduler.
type ApplicationConfiguration struct {
	Global    *global.Configuration                           `json:"global"`
	Blobstore *blobstore_configuration.BlobstoreConfiguration `json:"blobstore"`
	// Maximum size of messages exchanged with clients and storage
	// backends. Also used as the maximum size of ActionResult and
	// Action messages.
	MaximumMessageSizeBytes int `json:"maximumMessageSizeBytes"`

	// gRPC servers exposing the Content Addressable Storage, the
	// Action Cache, the Execution and the Operations services.
	ClientGrpcServers []*bb_grpc.ServerConfiguration `json:"clientGrpcServers"`
	// HTTP servers through which workers synchronize.
	WorkerHttpServers []*bb_http.ServerConfiguration `json:"workerHttpServers"`

	BuildQueue *scheduler.InMemoryBuildQueueConfiguration `json:"buildQueue"`

	ContentAddressableStorageAuthorizers *ScannableAuthorizersConfiguration    `json:"contentAddressableStorageAuthorizers"`
	ActionCacheAuthorizers               *NonScannableAuthorizersConfiguration `json:"actionCacheAuthorizers"`
	// Authorizer for Execute(), WaitExecution() and the Operations
	// service.
	ExecuteAuthorizer *auth_configuration.AuthorizerConfiguration `json:"executeAuthorizer"`
	// How results uploaded by clients through UpdateActionResult()
	// are treated when the Action Cache Put() authorizer denies
	// them. Either "REJECT" (the default) or "AUDIT".
	ActionCacheTrustPolicy string `json:"actionCacheTrustPolicy"`
}
