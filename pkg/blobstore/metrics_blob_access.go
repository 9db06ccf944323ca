package blobstore

import (
	"context"
	"time"

	"github.com/buildbarn/bb-fleet/pkg/blobstore/buffer"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/status"
)

var (
	blobAccessOperationsBlobSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "blobstore",
			Name:      "blob_access_operations_blob_size_bytes",
			Help:      "Size of blobs being inserted/retrieved, in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1.0, 2.0, 33),
		},
		[]string{"storage_type", "backend_type", "operation"})
	blobAccessOperationsFindMissingBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "blobstore",
			Name:      "blob_access_operations_find_missing_batch_size",
			Help:      "Number of digests provided to FindMissing().",
			Buckets:   prometheus.ExponentialBuckets(1.0, 2.0, 17),
		},
		[]string{"storage_type", "backend_type"})
	blobAccessOperationsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "blobstore",
			Name:      "blob_access_operations_duration_seconds",
			Help:      "Amount of time spent per operation on blob access objects, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-3, 6, 2),
		},
		[]string{"storage_type", "backend_type", "operation", "grpc_code"})
)

func init() {
	prometheus.MustRegister(blobAccessOperationsBlobSizeBytes)
	prometheus.MustRegister(blobAccessOperationsFindMissingBatchSize)
	prometheus.MustRegister(blobAccessOperationsDurationSeconds)
}

type metricsBlobAccess struct {
	blobAccess BlobAccess
	clock      clock.Clock

	getBlobSizeBytes           prometheus.Observer
	getDurationSeconds         prometheus.ObserverVec
	putBlobSizeBytes           prometheus.Observer
	putDurationSeconds         prometheus.ObserverVec
	findMissingBatchSize       prometheus.Observer
	findMissingDurationSeconds prometheus.ObserverVec
	deleteDurationSeconds      prometheus.ObserverVec
}

// NewMetricsBlobAccess creates an adapter for BlobAccess that adds
// basic instrumentation in the form of Prometheus metrics.
func NewMetricsBlobAccess(blobAccess BlobAccess, clock clock.Clock, storageType, backendType string) BlobAccess {
	return &metricsBlobAccess{
		blobAccess: blobAccess,
		clock:      clock,

		getBlobSizeBytes:           blobAccessOperationsBlobSizeBytes.WithLabelValues(storageType, backendType, "Get"),
		getDurationSeconds:         blobAccessOperationsDurationSeconds.MustCurryWith(map[string]string{"storage_type": storageType, "backend_type": backendType, "operation": "Get"}),
		putBlobSizeBytes:           blobAccessOperationsBlobSizeBytes.WithLabelValues(storageType, backendType, "Put"),
		putDurationSeconds:         blobAccessOperationsDurationSeconds.MustCurryWith(map[string]string{"storage_type": storageType, "backend_type": backendType, "operation": "Put"}),
		findMissingBatchSize:       blobAccessOperationsFindMissingBatchSize.WithLabelValues(storageType, backendType),
		findMissingDurationSeconds: blobAccessOperationsDurationSeconds.MustCurryWith(map[string]string{"storage_type": storageType, "backend_type": backendType, "operation": "FindMissing"}),
		deleteDurationSeconds:      blobAccessOperationsDurationSeconds.MustCurryWith(map[string]string{"storage_type": storageType, "backend_type": backendType, "operation": "Delete"}),
	}
}

func (ba *metricsBlobAccess) updateDurationSeconds(vec prometheus.ObserverVec, err error, timeStart time.Time) {
	vec.WithLabelValues(status.Code(err).String()).Observe(ba.clock.Now().Sub(timeStart).Seconds())
}

func (ba *metricsBlobAccess) Get(ctx context.Context, digest digest.Digest) buffer.Buffer {
	timeStart := ba.clock.Now()
	b := ba.blobAccess.Get(ctx, digest)
	sizeBytes, err := b.GetSizeBytes()
	if err == nil {
		ba.getBlobSizeBytes.Observe(float64(sizeBytes))
	}
	ba.updateDurationSeconds(ba.getDurationSeconds, err, timeStart)
	return b
}

func (ba *metricsBlobAccess) Put(ctx context.Context, digest digest.Digest, b buffer.Buffer) error {
	if sizeBytes, err := b.GetSizeBytes(); err == nil {
		ba.putBlobSizeBytes.Observe(float64(sizeBytes))
	}
	timeStart := ba.clock.Now()
	err := ba.blobAccess.Put(ctx, digest, b)
	ba.updateDurationSeconds(ba.putDurationSeconds, err, timeStart)
	return err
}

func (ba *metricsBlobAccess) FindMissing(ctx context.Context, digests digest.Set) (digest.Set, error) {
	ba.findMissingBatchSize.Observe(float64(digests.Length()))
	timeStart := ba.clock.Now()
	missing, err := ba.blobAccess.FindMissing(ctx, digests)
	ba.updateDurationSeconds(ba.findMissingDurationSeconds, err, timeStart)
	return missing, err
}

func (ba *metricsBlobAccess) Delete(ctx context.Context, digest digest.Digest) error {
	timeStart := ba.clock.Now()
	err := ba.blobAccess.Delete(ctx, digest)
	ba.updateDurationSeconds(ba.deleteDurationSeconds, err, timeStart)
	return err
}
