// Package dedupe provides a fixed-capacity FIFO set of recently seen ids,
// used to drop reflexive double-submissions. The set is owned by whoever
// dispatches requests; it is not shared global state.
package dedupe

import "sync"

type Set struct {
	mu       sync.Mutex
	capacity int
	order    []string
	members  map[string]struct{}
}

func NewSet(capacity int) *Set {
	if capacity < 1 {
		capacity = 1
	}
	return &Set{
		capacity: capacity,
		members:  make(map[string]struct{}, capacity),
	}
}

// Observe records id and reports whether it was already present. When the
// set is full the oldest entry is evicted first.
func (s *Set) Observe(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; ok {
		return true
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.members, oldest)
	}

	s.order = append(s.order, id)
	s.members[id] = struct{}{}
	return false
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
