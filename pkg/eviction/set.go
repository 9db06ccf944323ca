package eviction

// Set keeps track of the keys of objects stored in a cache, such as
// blobs in a local Content Addressable Storage shard, and determines
// which of them is evicted first once the cache is full. Sets are not
// safe for concurrent use. Callers hold the lock of the cache they
// belong to.
type Set[T comparable] interface {
	// Insert a key that is not yet part of the set.
	Insert(value T)

	// Touch marks a key that is part of the set as recently used.
	// Policies that ignore usage, such as FIFO and random
	// replacement, do nothing.
	Touch(value T)

	// Peek returns the key that is evicted next. The set may not
	// be empty.
	Peek() T

	// Remove the key that was last returned by Peek().
	Remove()
}
