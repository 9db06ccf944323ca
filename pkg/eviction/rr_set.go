package eviction

import (
	"math/rand/v2"

	"github.com/lazybeaver/xorshift"
)

type rrSet[T comparable] struct {
	elements []T
	sequence xorshift.XorShift
}

// NewRRSet creates a new cache replacement set that implements the
// Random Replacement (RR) policy.
//
// https://en.wikipedia.org/wiki/Cache_replacement_policies#Random_replacement_(RR)
func NewRRSet[T comparable]() Set[T] {
	return &rrSet[T]{
		// Xorshift generators must not be seeded with zero.
		sequence: xorshift.NewXorShift64Star(rand.Uint64() | 1),
	}
}

func (s *rrSet[T]) Insert(value T) {
	// Insert element into a random location in the list, opening up
	// space by moving an existing element to the end of the list.
	index := int(s.sequence.Next() % uint64(len(s.elements)+1))
	if index == len(s.elements) {
		s.elements = append(s.elements, value)
	} else {
		s.elements = append(s.elements, s.elements[index])
		s.elements[index] = value
	}
}

func (rrSet[T]) Touch(value T) {}

func (s *rrSet[T]) Peek() T {
	return s.elements[len(s.elements)-1]
}

func (s *rrSet[T]) Remove() {
	s.elements = s.elements[:len(s.elements)-1]
}
