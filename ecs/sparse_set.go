package ecs

// Tick is the change detection clock of a Registry, every component write records the tick it happened at
type Tick uint64

type slotTicks struct {
	added   Tick
	changed Tick
}

// SparseSet stores one component type, keyed by entity index.
// Writing a value of an entity already in the set only touches its own dense slot,
// so distinct entities can be updated from different goroutines.
type SparseSet[T any] struct {
	denseEntities []Entity
	denseValues   []T
	ticks         []slotTicks
	sparse        []int
}

func NewSparseSet[T any]() *SparseSet[T] {
	return &SparseSet[T]{}
}

func (s *SparseSet[T]) index(e Entity) (int, bool) {
	id := int(e.id())
	if id <= 0 || id-1 >= len(s.sparse) {
		return 0, false
	}
	idx := s.sparse[id-1]
	if idx < 0 || idx >= len(s.denseEntities) || s.denseEntities[idx] != e {
		return 0, false
	}
	return idx, true
}

// Has returns true if the entity, with its exact generation, exists in the set
func (s *SparseSet[T]) Has(e Entity) bool {
	_, ok := s.index(e)
	return ok
}

func (s *SparseSet[T]) Get(e Entity) (T, bool) {
	idx, ok := s.index(e)
	if !ok {
		var zero T
		return zero, false
	}
	return s.denseValues[idx], true
}

// Insert adds or replaces the component of e
func (s *SparseSet[T]) Insert(e Entity, v T, tick Tick) {
	if idx, ok := s.index(e); ok {
		s.denseValues[idx] = v
		s.ticks[idx].changed = tick
		return
	}

	id := int(e.id())
	for len(s.sparse) < id {
		s.sparse = append(s.sparse, -1)
	}
	s.denseEntities = append(s.denseEntities, e)
	s.denseValues = append(s.denseValues, v)
	s.ticks = append(s.ticks, slotTicks{added: tick, changed: tick})
	s.sparse[id-1] = len(s.denseEntities) - 1
}

// Set replaces the component of e, it returns false if e is not in the set
func (s *SparseSet[T]) Set(e Entity, v T, tick Tick) bool {
	idx, ok := s.index(e)
	if !ok {
		return false
	}
	s.denseValues[idx] = v
	s.ticks[idx].changed = tick
	return true
}

func (s *SparseSet[T]) Remove(e Entity) bool {
	idx, ok := s.index(e)
	if !ok {
		return false
	}
	last := len(s.denseEntities) - 1
	lastEntity := s.denseEntities[last]

	s.denseEntities[idx] = lastEntity
	s.denseValues[idx] = s.denseValues[last]
	s.ticks[idx] = s.ticks[last]
	s.sparse[lastEntity.id()-1] = idx

	var zero T
	s.denseValues[last] = zero
	s.denseEntities = s.denseEntities[:last]
	s.denseValues = s.denseValues[:last]
	s.ticks = s.ticks[:last]
	s.sparse[e.id()-1] = -1
	return true
}

// ChangedSince reports whether the component was written after tick since
func (s *SparseSet[T]) ChangedSince(e Entity, since Tick) bool {
	idx, ok := s.index(e)
	return ok && s.ticks[idx].changed > since
}

// AddedSince reports whether the component was inserted after tick since
func (s *SparseSet[T]) AddedSince(e Entity, since Tick) bool {
	idx, ok := s.index(e)
	return ok && s.ticks[idx].added > since
}

// Entities returns the dense entity list, it must not be modified
func (s *SparseSet[T]) Entities() []Entity {
	return s.denseEntities
}

func (s *SparseSet[T]) Len() int {
	return len(s.denseEntities)
}
