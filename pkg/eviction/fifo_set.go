package eviction

type fifoSet[T comparable] struct {
	elements []T
	head     int
}

// NewFIFOSet creates a new cache replacement set that implements the
// First In First Out (FIFO) policy.
//
// https://en.wikipedia.org/wiki/Cache_replacement_policies#First_in_first_out_(FIFO)
func NewFIFOSet[T comparable]() Set[T] {
	return &fifoSet[T]{}
}

func (s *fifoSet[T]) Insert(value T) {
	// Compact the backing array once more than half of it consists
	// of removed elements.
	if s.head > 0 && s.head*2 >= len(s.elements) {
		s.elements = append(s.elements[:0], s.elements[s.head:]...)
		s.head = 0
	}
	s.elements = append(s.elements, value)
}

func (fifoSet[T]) Touch(value T) {}

func (s *fifoSet[T]) Peek() T {
	return s.elements[s.head]
}

func (s *fifoSet[T]) Remove() {
	var zero T
	s.elements[s.head] = zero
	s.head++
}
