package configuration

import (
	"github.com/buildbarn/bb-fleet/pkg/auth/configuration"
	"github.com/buildbarn/bb-fleet/pkg/cloud/aws"
	"github.com/buildbarn/bb-fleet/pkg/cloud/gcp"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/buildbarn/bb-fleet/pkg/grpc"
	"github.com/buildbarn/bb-fleet/pkg/util"
)

// LocalBlobAccessConfiguration stores blobs in memory.
type LocalBlobAccessConfiguration struct {
	// Number of independently locked shards. Defaults to 16.
	ShardCount int `json:"shardCount"`
	// Total capacity of the store, spread evenly across shards.
	MaximumSizeBytes int64 `json:"maximumSizeBytes"`
	// Policy for choosing which blobs to evict once a shard is
	// full. Defaults to LEAST_RECENTLY_USED.
	CacheReplacementPolicy eviction.CacheReplacementPolicy `json:"cacheReplacementPolicy"`
}

// S3BlobAccessConfiguration stores blobs as objects in an Amazon S3
// bucket.
type S3BlobAccessConfiguration struct {
	Session   *aws.SessionConfiguration `json:"session"`
	Bucket    string                    `json:"bucket"`
	KeyPrefix string                    `json:"keyPrefix"`
}

// GCSBlobAccessConfiguration stores blobs as objects in a Google Cloud
// Storage bucket.
type GCSBlobAccessConfiguration struct {
	ClientOptions *gcp.ClientOptionsConfiguration `json:"clientOptions"`
	Bucket        string                          `json:"bucket"`
	KeyPrefix     string                          `json:"keyPrefix"`
}

// GRPCBlobAccessConfiguration forwards all requests to a remote REv2
// server.
type GRPCBlobAccessConfiguration struct {
	Client *grpc.ClientConfiguration `json:"client"`
	// Transfer blobs through the ByteStream service using the
	// compressed-blobs/zstd resource names.
	EnableZstdCompression bool `json:"enableZstdCompression"`
}

// ReadCachingBlobAccessConfiguration places a fast backend in front of
// a slow one. Blobs read from the slow backend are replicated into the
// fast one.
type ReadCachingBlobAccessConfiguration struct {
	Slow *BlobAccessConfiguration `json:"slow"`
	Fast *BlobAccessConfiguration `json:"fast"`
	// Blobs larger than this size are not replicated. Defaults to
	// 16 MiB.
	MaximumReplicationSizeBytes int `json:"maximumReplicationSizeBytes"`
}

// ExistenceCachingBlobAccessConfiguration remembers for a limited
// amount of time which blobs were reported present by FindMissing().
type ExistenceCachingBlobAccessConfiguration struct {
	Backend                *BlobAccessConfiguration        `json:"backend"`
	CacheSize              int                             `json:"cacheSize"`
	CacheDuration          util.Duration                   `json:"cacheDuration"`
	CacheReplacementPolicy eviction.CacheReplacementPolicy `json:"cacheReplacementPolicy"`
}

// AuthorizingBlobAccessConfiguration checks every request against an
// authorizer before passing it on.
type AuthorizingBlobAccessConfiguration struct {
	Backend     *BlobAccessConfiguration               `json:"backend"`
	Get         *configuration.AuthorizerConfiguration `json:"get"`
	Put         *configuration.AuthorizerConfiguration `json:"put"`
	FindMissing *configuration.AuthorizerConfiguration `json:"findMissing"`
}

// BlobAccessConfiguration selects exactly one storage backend or
// decorator.
type BlobAccessConfiguration struct {
	Local              *LocalBlobAccessConfiguration            `json:"local"`
	S3                 *S3BlobAccessConfiguration               `json:"s3"`
	GCS                *GCSBlobAccessConfiguration              `json:"gcs"`
	GRPC               *GRPCBlobAccessConfiguration             `json:"grpc"`
	ReadCaching        *ReadCachingBlobAccessConfiguration      `json:"readCaching"`
	ExistenceCaching   *ExistenceCachingBlobAccessConfiguration `json:"existenceCaching"`
	EmptyBlobInjecting *BlobAccessConfiguration                 `json:"emptyBlobInjecting"`
	Authorizing        *AuthorizingBlobAccessConfiguration      `json:"authorizing"`
}

// BlobstoreConfiguration contains the storage backends of both the
// Content Addressable Storage and the Action Cache. Action results
// referencing objects absent from the Content Addressable Storage are
// always reported as absent and removed from the Action Cache.
type BlobstoreConfiguration struct {
	ContentAddressableStorage *BlobAccessConfiguration `json:"contentAddressableStorage"`
	ActionCache               *BlobAccessConfiguration `json:"actionCache"`
}
