package wwise

import "slices"

// orderedMap maps WEM IDs to values and remembers insertion order.
// Overwriting a key keeps its original position.
type orderedMap[V any] struct {
	keys []uint32
	vals map[uint32]V
}

func newOrderedMap[V any](capacity int) *orderedMap[V] {
	return &orderedMap[V]{
		keys: make([]uint32, 0, capacity),
		vals: make(map[uint32]V, capacity),
	}
}

func (m *orderedMap[V]) Set(key uint32, val V) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.vals[key] = val
}

func (m *orderedMap[V]) Get(key uint32) (V, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *orderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in iteration order.
func (m *orderedMap[V]) Keys() []uint32 {
	return slices.Clone(m.keys)
}

func (m *orderedMap[V]) Clone() *orderedMap[V] {
	out := newOrderedMap[V](len(m.keys))
	for _, k := range m.keys {
		out.Set(k, m.vals[k])
	}

	return out
}

// Update copies every entry of other into m; other wins on collision.
func (m *orderedMap[V]) Update(other *orderedMap[V]) {
	for _, k := range other.keys {
		m.Set(k, other.vals[k])
	}
}

// SortKeys reorders iteration by ascending numeric key.
func (m *orderedMap[V]) SortKeys() {
	slices.Sort(m.keys)
}
