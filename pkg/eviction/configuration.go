package eviction

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CacheReplacementPolicy is the name of a cache replacement policy, as
// it appears in configuration files.
type CacheReplacementPolicy string

const (
	// FirstInFirstOut evicts the oldest inserted element first.
	FirstInFirstOut CacheReplacementPolicy = "FIRST_IN_FIRST_OUT"
	// LeastRecentlyUsed evicts the element that was used the
	// longest time ago first.
	LeastRecentlyUsed CacheReplacementPolicy = "LEAST_RECENTLY_USED"
	// RandomReplacement evicts a random element.
	RandomReplacement CacheReplacementPolicy = "RANDOM_REPLACEMENT"
)

// NewSetFromConfiguration creates a new cache replacement set using an
// algorithm specified in a configuration file. The empty policy name
// selects LEAST_RECENTLY_USED.
func NewSetFromConfiguration[T comparable](cacheReplacementPolicy CacheReplacementPolicy) (Set[T], error) {
	switch cacheReplacementPolicy {
	case FirstInFirstOut:
		return NewFIFOSet[T](), nil
	case LeastRecentlyUsed, "":
		return NewLRUSet[T](), nil
	case RandomReplacement:
		return NewRRSet[T](), nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "Unknown cache replacement policy %#v", string(cacheReplacementPolicy))
	}
}
