package local

import (
	"context"
	"sync"

	"github.com/buildbarn/bb-fleet/pkg/blobstore"
	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	localBlobAccessPrometheusMetrics sync.Once

	localBlobAccessStoredBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "buildbarn",
			Subsystem: "blobstore",
			Name:      "local_blob_access_stored_bytes",
			Help:      "Total size of the blobs held in memory, in bytes.",
		},
		[]string{"name"})
	localBlobAccessEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "blobstore",
			Name:      "local_blob_access_evictions_total",
			Help:      "Number of blobs that were evicted to make room for new blobs.",
		},
		[]string{"name"})
)

// shard of the key space. Every shard has its own lock and eviction
// set, so that writes to different shards do not contend.
//
// Keys of deleted blobs remain part of the eviction set until they are
// evicted, so that reinsertion can touch the existing entry.
type shard struct {
	lock             sync.Mutex
	blobs            map[string][]byte
	evictionKeys     map[string]struct{}
	evictionSet      eviction.Set[string]
	sizeBytes        int64
	maximumSizeBytes int64
}

type localBlobAccess struct {
	keyFormat         digest.KeyFormat
	readBufferFactory blobstore.ReadBufferFactory
	shards            []*shard

	storedBytes    prometheus.Gauge
	evictionsTotal prometheus.Counter
}

// NewLocalBlobAccess creates a BlobAccess that stores blobs in memory.
// The key space is spread across a number of shards, each having an
// equal part of the provided capacity. When a shard is full, blobs are
// evicted according to the shard's cache replacement policy.
func NewLocalBlobAccess(keyFormat digest.KeyFormat, readBufferFactory blobstore.ReadBufferFactory, shardCount int, maximumSizeBytes int64, newEvictionSet func() eviction.Set[string], name string) blobstore.BlobAccess {
	localBlobAccessPrometheusMetrics.Do(func() {
		prometheus.MustRegister(localBlobAccessStoredBytes)
		prometheus.MustRegister(localBlobAccessEvictionsTotal)
	})

	if shardCount < 1 {
		shardCount = 1
	}
	shards := make([]*shard, 0, shardCount)
	for i := 0; i < shardCount; i++ {
		shards = append(shards, &shard{
			blobs:            map[string][]byte{},
			evictionKeys:     map[string]struct{}{},
			evictionSet:      newEvictionSet(),
			maximumSizeBytes: maximumSizeBytes / int64(shardCount),
		})
	}
	return &localBlobAccess{
		keyFormat:         keyFormat,
		readBufferFactory: readBufferFactory,
		shards:            shards,

		storedBytes:    localBlobAccessStoredBytes.WithLabelValues(name),
		evictionsTotal: localBlobAccessEvictionsTotal.WithLabelValues(name),
	}
}

func (ba *localBlobAccess) getShard(key string) *shard {
	return ba.shards[xxhash.Sum64String(key)%uint64(len(ba.shards))]
}

func (ba *localBlobAccess) Get(ctx context.Context, blobDigest digest.Digest) buffer.Buffer {
	key := blobDigest.GetKey(ba.keyFormat)
	s := ba.getShard(key)
	s.lock.Lock()
	data, ok := s.blobs[key]
	if ok {
		s.evictionSet.Touch(key)
	}
	s.lock.Unlock()

	if !ok {
		return buffer.NewBufferFromError(status.Errorf(codes.NotFound, "Blob %s not found", blobDigest))
	}
	return ba.readBufferFactory.NewBufferFromByteSlice(blobDigest, data, func(dataIsValid bool) {
		if !dataIsValid {
			ba.Delete(ctx, blobDigest)
		}
	})
}

func (ba *localBlobAccess) Put(ctx context.Context, blobDigest digest.Digest, b buffer.Buffer) error {
	key := blobDigest.GetKey(ba.keyFormat)
	s := ba.getShard(key)
	data, err := b.ToByteSlice(int(s.maximumSizeBytes))
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.evictionKeys[key]; ok {
		s.evictionSet.Touch(key)
	} else {
		s.evictionSet.Insert(key)
		s.evictionKeys[key] = struct{}{}
	}
	delta := int64(len(data))
	if oldData, ok := s.blobs[key]; ok {
		delta -= int64(len(oldData))
	}
	s.blobs[key] = data
	s.sizeBytes += delta
	ba.storedBytes.Add(float64(delta))

	for s.sizeBytes > s.maximumSizeBytes {
		evictedKey := s.evictionSet.Peek()
		s.evictionSet.Remove()
		delete(s.evictionKeys, evictedKey)
		if evictedData, ok := s.blobs[evictedKey]; ok {
			delete(s.blobs, evictedKey)
			s.sizeBytes -= int64(len(evictedData))
			ba.storedBytes.Sub(float64(len(evictedData)))
			ba.evictionsTotal.Inc()
		}
	}
	return nil
}

func (ba *localBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	missing := digest.NewSetBuilder()
	for _, blobDigest := range digests.Items() {
		key := blobDigest.GetKey(ba.keyFormat)
		s := ba.getShard(key)
		s.lock.Lock()
		if _, ok := s.blobs[key]; ok {
			s.evictionSet.Touch(key)
		} else {
			missing.Add(blobDigest)
		}
		s.lock.Unlock()
	}
	return missing.Build(), nil
}

func (ba *localBlobAccess) Delete(ctx context.Context, blobDigest digest.Digest) error {
	key := blobDigest.GetKey(ba.keyFormat)
	s := ba.getShard(key)
	s.lock.Lock()
	if data, ok := s.blobs[key]; ok {
		delete(s.blobs, key)
		s.sizeBytes -= int64(len(data))
		ba.storedBytes.Sub(float64(len(data)))
	}
	s.lock.Unlock()
	return nil
}
