// Package mock contains mocks for interfaces declared throughout this
// module, for use in unit tests.
package mock

//go:generate mockgen -package mock -destination aliases.go github.com/buildbarn/bb-fleet/internal/mock/aliases DataIntegrityCallback,ReadCloser,Writer,WriteCloser,ClientConnInterface,ClientStream,ServerStream,Execution_ExecuteServer,Execution_WaitExecutionServer,UnaryHandler,StreamHandler,UnaryInvoker,Streamer
//go:generate mockgen -package mock -destination auth.go github.com/buildbarn/bb-fleet/pkg/auth Authorizer
//go:generate mockgen -package mock -destination builder.go github.com/buildbarn/bb-fleet/pkg/builder BuildQueue
//go:generate mockgen -package mock -destination blobstore.go github.com/buildbarn/bb-fleet/pkg/blobstore BlobAccess
//go:generate mockgen -package mock -destination clock.go github.com/buildbarn/bb-fleet/pkg/clock Clock,Timer,Ticker
//go:generate mockgen -package mock -destination cloud_aws.go github.com/buildbarn/bb-fleet/pkg/cloud/aws S3Client
//go:generate mockgen -package mock -destination cloud_gcp.go github.com/buildbarn/bb-fleet/pkg/cloud/gcp StorageBucketHandle,StorageObjectHandle
//go:generate mockgen -package mock -destination grpc.go github.com/buildbarn/bb-fleet/pkg/grpc Authenticator,ClientFactory
//go:generate mockgen -package mock -destination capabilities.go -mock_names Provider=MockCapabilitiesProvider github.com/buildbarn/bb-fleet/pkg/capabilities Provider
//go:generate mockgen -package mock -destination scheduler_remoteworker.go github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker Synchronizer
//go:generate mockgen -package mock -destination worker.go github.com/buildbarn/bb-fleet/pkg/worker BuildExecutor,Runner
//go:generate mockgen -package mock -destination util.go github.com/buildbarn/bb-fleet/pkg/util ErrorLogger
