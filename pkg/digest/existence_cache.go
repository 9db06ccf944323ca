package digest

import (
	"sync"
	"time"

	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
)

// ExistenceCache is a cache of digests, where entries expire once a
// certain duration of time has passed. It is used by
// ExistenceCachingBlobAccess to keep track of which objects may be
// omitted from FindMissing() calls.
//
// It is safe to access ExistenceCache concurrently.
type ExistenceCache struct {
	clock         clock.Clock
	keyFormat     KeyFormat
	cacheSize     int
	cacheDuration time.Duration

	lock           sync.Mutex
	insertionTimes map[string]time.Time
	evictionSet    eviction.Set[string]
}

// NewExistenceCache creates a new ExistenceCache that is empty.
func NewExistenceCache(clock clock.Clock, keyFormat KeyFormat, cacheSize int, cacheDuration time.Duration, evictionSet eviction.Set[string]) *ExistenceCache {
	return &ExistenceCache{
		clock:         clock,
		keyFormat:     keyFormat,
		cacheSize:     cacheSize,
		cacheDuration: cacheDuration,

		insertionTimes: map[string]time.Time{},
		evictionSet:    evictionSet,
	}
}

// RemoveExisting removes digests from a provided set that are present
// in the cache.
func (ec *ExistenceCache) RemoveExisting(digests Set) Set {
	minimumInsertionTime := ec.clock.Now().Add(-ec.cacheDuration)
	missing := NewSetBuilder()
	ec.lock.Lock()
	defer ec.lock.Unlock()
	for _, d := range digests.Items() {
		key := d.GetKey(ec.keyFormat)
		if insertionTime, ok := ec.insertionTimes[key]; ok && !insertionTime.Before(minimumInsertionTime) {
			ec.evictionSet.Touch(key)
		} else {
			missing.Add(d)
		}
	}
	return missing.Build()
}

// Add digests to the cache. These digests will automatically be removed
// once the duration provided to NewExistenceCache passes.
func (ec *ExistenceCache) Add(digests Set) {
	now := ec.clock.Now()
	ec.lock.Lock()
	defer ec.lock.Unlock()
	for _, d := range digests.Items() {
		key := d.GetKey(ec.keyFormat)
		if _, ok := ec.insertionTimes[key]; ok {
			ec.insertionTimes[key] = now
			ec.evictionSet.Touch(key)
			continue
		}
		if len(ec.insertionTimes) >= ec.cacheSize {
			delete(ec.insertionTimes, ec.evictionSet.Peek())
			ec.evictionSet.Remove()
		}
		ec.insertionTimes[key] = now
		ec.evictionSet.Insert(key)
	}
}

// Remove a digest from the cache, so that subsequent calls to
// RemoveExisting() no longer omit it. This is used when a blob is
// known to have disappeared from storage.
func (ec *ExistenceCache) Remove(d Digest) {
	ec.lock.Lock()
	defer ec.lock.Unlock()
	// The entry remains part of the eviction set, so that the size
	// accounting in Add() stays intact.
	key := d.GetKey(ec.keyFormat)
	if _, ok := ec.insertionTimes[key]; ok {
		ec.insertionTimes[key] = time.Time{}
	}
}
