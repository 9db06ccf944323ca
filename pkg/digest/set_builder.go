package digest

import (
	"sort"
)

// SetBuilder is a builder for Set objects.
type SetBuilder struct {
	digests map[Digest]struct{}
}

// NewSetBuilder creates a SetBuilder that contains no initial elements.
func NewSetBuilder() SetBuilder {
	return SetBuilder{
		digests: map[Digest]struct{}{},
	}
}

// Add a single element to the Set that is being built by the
// SetBuilder.
func (sb SetBuilder) Add(digest Digest) SetBuilder {
	sb.digests[digest] = struct{}{}
	return sb
}

// Length returns the number of elements that the Set would contain if
// built.
func (sb SetBuilder) Length() int {
	return len(sb.digests)
}

// Build the Set containing the Digests provided to Add().
func (sb SetBuilder) Build() Set {
	if len(sb.digests) == 0 {
		return Set{}
	}
	digests := make([]Digest, 0, len(sb.digests))
	for d := range sb.digests {
		digests = append(digests, d)
	}
	// Sorting permits a linear time implementation of
	// GetDifferenceAndIntersection() and bisection in Contains().
	sort.Slice(digests, func(i, j int) bool {
		return digests[i].String() < digests[j].String()
	})
	return Set{digests: digests}
}
