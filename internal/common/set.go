package common

type Set[T comparable] struct {
	elements map[T]struct{}
}

// NewSet creates a new set, optionally seeded with values
func NewSet[T comparable](values ...T) *Set[T] {
	s := &Set[T]{
		elements: make(map[T]struct{}, len(values)),
	}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts an element into the set
func (s *Set[T]) Add(value T) {
	s.elements[value] = struct{}{}
}

// Remove deletes an element from the set
func (s *Set[T]) Remove(value T) {
	delete(s.elements, value)
}

// Contains checks if an element is in the set. A nil set contains nothing.
func (s *Set[T]) Contains(value T) bool {
	if s == nil {
		return false
	}
	_, found := s.elements[value]
	return found
}

// Size returns the number of elements in the set
func (s *Set[T]) Size() int {
	if s == nil {
		return 0
	}
	return len(s.elements)
}

// List returns all elements in the set as a slice
func (s *Set[T]) List() []T {
	if s == nil {
		return nil
	}
	keys := make([]T, 0, len(s.elements))
	for key := range s.elements {
		keys = append(keys, key)
	}
	return keys
}
