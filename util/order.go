package util

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// OrderedMap is a map remembering the order in which keys were inserted.
//
// Inserting an existing key is refused unless overrides are allowed. Overriding keeps
// the original position of the key.
type OrderedMap[K comparable, V any] struct {
	data            map[K]V
	keys            []K
	forbidOverrides bool
}

// OrderedMapEntry is an accessor into a single (key, value) pair of the map.
type OrderedMapEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// Instantiates an empty OrderedMap object.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		data:            map[K]V{},
		forbidOverrides: true,
	}
}

// Allow key overrides of the keys.
func (m *OrderedMap[K, V]) AllowOverrides() {
	m.forbidOverrides = false
}

// Insert a (key, value) pair. Returns false if the key exists and overrides are forbidden.
func (m *OrderedMap[K, V]) Insert(key K, value V) bool {
	if _, ok := m.data[key]; ok {
		if m.forbidOverrides {
			return false
		}
		m.data[key] = value
		return true
	}
	m.data[key] = value
	m.keys = append(m.keys, key)
	return true
}

// Performs a lookup of the key, similar to `v, ok := m[k]`.
func (m *OrderedMap[K, V]) Lookup(key K) (V, bool) {
	val, ok := m.data[key]
	return val, ok
}

// Rename moves the value stored under from to to, keeping its position.
// Returns false if from is missing or to is already present.
func (m *OrderedMap[K, V]) Rename(from, to K) bool {
	val, ok := m.data[from]
	if !ok {
		return false
	}
	if _, exists := m.data[to]; exists {
		return false
	}
	for i, k := range m.keys {
		if k == from {
			m.keys[i] = to
			break
		}
	}
	delete(m.data, from)
	m.data[to] = val
	return true
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

// Returns the list of entries in insertion order.
func (m *OrderedMap[K, V]) Entries() []OrderedMapEntry[K, V] {
	result := make([]OrderedMapEntry[K, V], 0, len(m.keys))
	for _, k := range m.keys {
		result = append(result, OrderedMapEntry[K, V]{
			Key:   k,
			Value: m.data[k],
		})
	}
	return result
}

// Returns the map keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	result := make([]K, len(m.keys))
	copy(result, m.keys)
	return result
}

// Returns the values in insertion order.
func (m *OrderedMap[K, V]) Values() []V {
	result := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		result = append(result, m.data[k])
	}
	return result
}

// Returns the ordered copy of the provided slice, the values are shallow-copied.
func OrderedSlice[V constraints.Ordered](values []V) []V {
	result := make([]V, len(values))
	copy(result, values)
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Convenience function, returning the sorted keys of the input map.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return OrderedSlice(keys)
}
