package digest

import (
	"sort"
)

// Set of digests. Sets are immutable, sorted by key and can be created
// using SetBuilder.
type Set struct {
	digests []Digest
}

// EmptySet is an instance of Set that contains zero elements.
var EmptySet = Set{}

// Items returns a sorted list of all elements stored within the set.
func (s Set) Items() []Digest {
	return s.digests
}

// Empty returns true if the set contains zero elements.
func (s Set) Empty() bool {
	return len(s.digests) == 0
}

// First returns the first element stored in the set. The boolean
// return value denotes whether the operation was successful (i.e., the
// set is non-empty).
func (s Set) First() (Digest, bool) {
	if len(s.digests) == 0 {
		return BadDigest, false
	}
	return s.digests[0], true
}

// Length returns the number of elements stored in the set.
func (s Set) Length() int {
	return len(s.digests)
}

// Contains returns true if the set contains a given digest.
func (s Set) Contains(d Digest) bool {
	key := d.String()
	i := sort.Search(len(s.digests), func(i int) bool { return s.digests[i].String() >= key })
	return i < len(s.digests) && s.digests[i] == d
}

// RemoveEmptyBlob returns a copy of the set that has all of the entries
// corresponding with the empty blob removed.
func (s Set) RemoveEmptyBlob() Set {
	for start, d := range s.digests {
		if d.GetSizeBytes() == 0 {
			nonEmptyBlobs := append([]Digest(nil), s.digests[:start]...)
			for _, d := range s.digests[start+1:] {
				if d.GetSizeBytes() != 0 {
					nonEmptyBlobs = append(nonEmptyBlobs, d)
				}
			}
			return Set{digests: nonEmptyBlobs}
		}
	}
	return s
}

// GetDifferenceAndIntersection partitions the elements stored in sets A
// and B across three resulting sets: one containing the elements
// present only in A, one containing the elements present in both A and
// B, and one containing the elements present only in B.
func GetDifferenceAndIntersection(setA, setB Set) (onlyA, both, onlyB Set) {
	a, b := setA.digests, setB.digests
	for len(a) > 0 && len(b) > 0 {
		if sA, sB := a[0].String(), b[0].String(); sA < sB {
			onlyA.digests = append(onlyA.digests, a[0])
			a = a[1:]
		} else if sA == sB {
			both.digests = append(both.digests, a[0])
			a, b = a[1:], b[1:]
		} else {
			onlyB.digests = append(onlyB.digests, b[0])
			b = b[1:]
		}
	}
	onlyA.digests = append(onlyA.digests, a...)
	onlyB.digests = append(onlyB.digests, b...)
	return
}

// GetUnion merges all of the elements stored in a list of sets into a
// single resulting set.
func GetUnion(sets []Set) Set {
	switch len(sets) {
	case 0:
		return EmptySet
	case 1:
		return sets[0]
	}
	sb := NewSetBuilder()
	for _, s := range sets {
		for _, d := range s.digests {
			sb.Add(d)
		}
	}
	return sb.Build()
}
