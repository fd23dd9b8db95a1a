package progression

// ExpandedSet records which modules are shown expanded in the sidebar.
// Insertion order is kept so the view can restore it deterministically.
type ExpandedSet struct {
	order []string
	index map[string]struct{}
}

// NewExpandedSet returns an empty set.
func NewExpandedSet() *ExpandedSet {
	return &ExpandedSet{index: make(map[string]struct{})}
}

// Add inserts id. Adding an id that is already present is a no-op.
func (s *ExpandedSet) Add(id string) {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
}

// Remove deletes id if present.
func (s *ExpandedSet) Remove(id string) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Toggle flips the expansion of id and returns the new state.
func (s *ExpandedSet) Toggle(id string) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Has reports whether id is expanded.
func (s *ExpandedSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Len returns the number of expanded modules.
func (s *ExpandedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns a copy of the expanded ids in insertion order.
func (s *ExpandedSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
