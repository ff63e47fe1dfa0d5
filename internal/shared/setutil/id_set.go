// Package setutil provides generic set utilities for common ID collection patterns.
package setutil

// IDSet is a set of uint64 ids.
// It uses map[uint64]struct{} internally for memory efficiency.
type IDSet struct {
	items map[uint64]struct{}
}

// NewIDSet creates a set holding the given ids.
func NewIDSet(ids ...uint64) *IDSet {
	s := &IDSet{items: make(map[uint64]struct{}, len(ids))}
	s.AddAll(ids)
	return s
}

// Add adds an id to the set.
func (s *IDSet) Add(id uint64) {
	s.items[id] = struct{}{}
}

// AddAll adds all ids to the set.
func (s *IDSet) AddAll(ids []uint64) {
	for _, id := range ids {
		s.items[id] = struct{}{}
	}
}

// Has returns true if the id exists in the set.
func (s *IDSet) Has(id uint64) bool {
	_, ok := s.items[id]
	return ok
}

// Diff returns the ids present in s but absent from other.
func (s *IDSet) Diff(other *IDSet) []uint64 {
	result := make([]uint64, 0)
	for id := range s.items {
		if !other.Has(id) {
			result = append(result, id)
		}
	}
	return result
}

// ToSlice returns all ids as a slice.
// The order is not guaranteed.
func (s *IDSet) ToSlice() []uint64 {
	result := make([]uint64, 0, len(s.items))
	for id := range s.items {
		result = append(result, id)
	}
	return result
}

// Len returns the number of elements in the set.
func (s *IDSet) Len() int {
	return len(s.items)
}
