package configuration

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	auth_configuration "github.com/buildbarn/bb-fleet/pkg/auth/configuration"
	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/completenesschecking"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/grpcclients"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/local"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/cloud/aws"
	"github.com/buildbarn/bb-fleet/pkg/cloud/gcp"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/buildbarn/bb-fleet/pkg/grpc"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/google/uuid"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultShardCount                  = 16
	defaultMaximumReplicationSizeBytes = 16 * 1024 * 1024
	defaultExistenceCacheSize          = 100000
	completenessCheckingBatchSize      = 100
	byteStreamReadChunkSize            = 64 * 1024
)

// blobAccessCreator holds the properties in which the Content
// Addressable Storage and the Action Cache differ.
type blobAccessCreator struct {
	storageTypeName         string
	digestKeyFormat         digest.KeyFormat
	readBufferFactory       blobstore.ReadBufferFactory
	grpcClientFactory       grpc.ClientFactory
	maximumMessageSizeBytes int
	isActionCache           bool
}

func (c *blobAccessCreator) newGRPCBlobAccess(configuration *GRPCBlobAccessConfiguration) (blobstore.BlobAccess, error) {
	client, err := c.grpcClientFactory.NewClientFromConfiguration(configuration.Client)
	if err != nil {
		return nil, err
	}
	if !c.isActionCache {
		return grpcclients.NewCASBlobAccess(client, uuid.NewRandom, byteStreamReadChunkSize, configuration.EnableZstdCompression), nil
	}
	return grpcclients.NewACBlobAccess(client, c.maximumMessageSizeBytes), nil
}

func (c *blobAccessCreator) newBareBlobAccess(configuration *BlobAccessConfiguration) (blobstore.BlobAccess, string, error) {
	switch {
	case configuration.Local != nil:
		backend := configuration.Local
		if backend.MaximumSizeBytes <= 0 {
			return nil, "", status.Error(codes.InvalidArgument, "Maximum size must be positive")
		}
		shardCount := backend.ShardCount
		if shardCount <= 0 {
			shardCount = defaultShardCount
		}
		if _, err := eviction.NewSetFromConfiguration[string](backend.CacheReplacementPolicy); err != nil {
			return nil, "", err
		}
		return local.NewLocalBlobAccess(
			c.digestKeyFormat,
			c.readBufferFactory,
			shardCount,
			backend.MaximumSizeBytes,
			func() eviction.Set[string] {
				evictionSet, _ := eviction.NewSetFromConfiguration[string](backend.CacheReplacementPolicy)
				return eviction.NewMetricsSet(evictionSet, c.storageTypeName)
			},
			c.storageTypeName), "local", nil
	case configuration.S3 != nil:
		backend := configuration.S3
		cfg, err := aws.NewConfigFromConfiguration(backend.Session)
		if err != nil {
			return nil, "", util.StatusWrap(err, "Failed to create AWS configuration")
		}
		return blobstore.NewS3BlobAccess(
			s3.NewFromConfig(cfg),
			backend.Bucket,
			backend.KeyPrefix,
			c.digestKeyFormat,
			c.readBufferFactory,
			c.maximumMessageSizeBytes), "s3", nil
	case configuration.GCS != nil:
		backend := configuration.GCS
		client, err := storage.NewClient(context.Background(), gcp.NewClientOptionsFromConfiguration(backend.ClientOptions)...)
		if err != nil {
			return nil, "", util.StatusWrapWithCode(err, codes.Internal, "Failed to create Google Cloud Storage client")
		}
		return blobstore.NewGCSBlobAccess(
			gcp.NewWrappedStorageClient(client).Bucket(backend.Bucket),
			backend.KeyPrefix,
			c.digestKeyFormat,
			c.readBufferFactory), "gcs", nil
	case configuration.GRPC != nil:
		backend, err := c.newGRPCBlobAccess(configuration.GRPC)
		if err != nil {
			return nil, "", err
		}
		return backend, "grpc", nil
	case configuration.ReadCaching != nil:
		backend := configuration.ReadCaching
		slow, err := c.newNestedBlobAccess(backend.Slow)
		if err != nil {
			return nil, "", util.StatusWrap(err, "Slow backend")
		}
		fast, err := c.newNestedBlobAccess(backend.Fast)
		if err != nil {
			return nil, "", util.StatusWrap(err, "Fast backend")
		}
		maximumReplicationSizeBytes := backend.MaximumReplicationSizeBytes
		if maximumReplicationSizeBytes <= 0 {
			maximumReplicationSizeBytes = defaultMaximumReplicationSizeBytes
		}
		return blobstore.NewReadCachingBlobAccess(slow, fast, maximumReplicationSizeBytes), "read_caching", nil
	case configuration.ExistenceCaching != nil:
		backend := configuration.ExistenceCaching
		base, err := c.newNestedBlobAccess(backend.Backend)
		if err != nil {
			return nil, "", err
		}
		evictionSet, err := eviction.NewSetFromConfiguration[string](backend.CacheReplacementPolicy)
		if err != nil {
			return nil, "", err
		}
		cacheSize := backend.CacheSize
		if cacheSize <= 0 {
			cacheSize = defaultExistenceCacheSize
		}
		if backend.CacheDuration.Duration <= 0 {
			return nil, "", status.Error(codes.InvalidArgument, "Cache duration must be positive")
		}
		return blobstore.NewExistenceCachingBlobAccess(
			base,
			digest.NewExistenceCache(clock.SystemClock, c.digestKeyFormat, cacheSize, backend.CacheDuration.Duration, evictionSet)), "existence_caching", nil
	case configuration.EmptyBlobInjecting != nil:
		base, err := c.newNestedBlobAccess(configuration.EmptyBlobInjecting)
		if err != nil {
			return nil, "", err
		}
		return blobstore.NewEmptyBlobInjectingBlobAccess(base), "empty_blob_injecting", nil
	case configuration.Authorizing != nil:
		backend := configuration.Authorizing
		base, err := c.newNestedBlobAccess(backend.Backend)
		if err != nil {
			return nil, "", err
		}
		var authorizers [3]auth.Authorizer
		for i, authorizerConfiguration := range []*auth_configuration.AuthorizerConfiguration{backend.Get, backend.Put, backend.FindMissing} {
			authorizer, err := auth_configuration.NewAuthorizerFromConfiguration(authorizerConfiguration)
			if err != nil {
				return nil, "", util.StatusWrapf(err, "Failed to create %s authorizer", []string{"Get()", "Put()", "FindMissing()"}[i])
			}
			authorizers[i] = authorizer
		}
		return blobstore.NewAuthorizingBlobAccess(base, authorizers[0], authorizers[1], authorizers[2]), "authorizing", nil
	default:
		return nil, "", status.Error(codes.InvalidArgument, "Configuration did not contain a supported storage backend")
	}
}

func (c *blobAccessCreator) newNestedBlobAccess(configuration *BlobAccessConfiguration) (blobstore.BlobAccess, error) {
	if configuration == nil {
		return nil, status.Error(codes.InvalidArgument, "Storage configuration not specified")
	}
	backend, backendType, err := c.newBareBlobAccess(configuration)
	if err != nil {
		return nil, err
	}
	return blobstore.NewMetricsBlobAccess(backend, clock.SystemClock, c.storageTypeName, backendType), nil
}

// NewCASBlobAccessFromConfiguration creates a BlobAccess that is
// suitable for accessing the Content Addressable Storage.
func NewCASBlobAccessFromConfiguration(configuration *BlobAccessConfiguration, grpcClientFactory grpc.ClientFactory, maximumMessageSizeBytes int) (blobstore.BlobAccess, error) {
	c := blobAccessCreator{
		storageTypeName:         "cas",
		digestKeyFormat:         digest.KeyWithoutInstance,
		readBufferFactory:       blobstore.CASReadBufferFactory,
		grpcClientFactory:       grpcClientFactory,
		maximumMessageSizeBytes: maximumMessageSizeBytes,
	}
	return c.newNestedBlobAccess(configuration)
}

// NewACBlobAccessFromConfiguration creates a BlobAccess that is
// suitable for accessing the Action Cache. Action results are only
// returned if all of the objects they reference are present in the
// provided Content Addressable Storage. Incomplete action results are
// removed.
func NewACBlobAccessFromConfiguration(configuration *BlobAccessConfiguration, contentAddressableStorage blobstore.BlobAccess, grpcClientFactory grpc.ClientFactory, maximumMessageSizeBytes int) (blobstore.BlobAccess, error) {
	c := blobAccessCreator{
		storageTypeName:         "ac",
		digestKeyFormat:         digest.KeyWithInstance,
		readBufferFactory:       blobstore.ACReadBufferFactory,
		grpcClientFactory:       grpcClientFactory,
		maximumMessageSizeBytes: maximumMessageSizeBytes,
		isActionCache:           true,
	}
	base, err := c.newNestedBlobAccess(configuration)
	if err != nil {
		return nil, err
	}
	return blobstore.NewMetricsBlobAccess(
		completenesschecking.NewCompletenessCheckingBlobAccess(
			base,
			contentAddressableStorage,
			completenessCheckingBatchSize,
			maximumMessageSizeBytes),
		clock.SystemClock,
		c.storageTypeName,
		"completeness_checking"), nil
}

// NewCASAndACBlobAccessFromConfiguration is a convenience function to
// create BlobAccess objects for both the Content Addressable Storage
// and Action Cache. Most components require access to both.
func NewCASAndACBlobAccessFromConfiguration(configuration *BlobstoreConfiguration, grpcClientFactory grpc.ClientFactory, maximumMessageSizeBytes int) (blobstore.BlobAccess, blobstore.BlobAccess, error) {
	if configuration == nil {
		return nil, nil, status.Error(codes.InvalidArgument, "Blobstore configuration not specified")
	}
	contentAddressableStorage, err := NewCASBlobAccessFromConfiguration(configuration.ContentAddressableStorage, grpcClientFactory, maximumMessageSizeBytes)
	if err != nil {
		return nil, nil, util.StatusWrap(err, "Failed to create Content Addressable Storage")
	}
	actionCache, err := NewACBlobAccessFromConfiguration(configuration.ActionCache, contentAddressableStorage, grpcClientFactory, maximumMessageSizeBytes)
	if err != nil {
		return nil, nil, util.StatusWrap(err, "Failed to create Action Cache")
	}
	return contentAddressableStorage, actionCache, nil
}
