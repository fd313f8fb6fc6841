package model

import "slices"

// sortedMap is a string-keyed map that iterates in ascending key order.
// Putting an existing key replaces its value.
type sortedMap[V any] struct {
	keys   []string
	values map[string]V
}

func (m *sortedMap[V]) put(key string, v V) (prev V, replaced bool) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	prev, replaced = m.values[key]
	if !replaced {
		i, _ := slices.BinarySearch(m.keys, key)
		m.keys = slices.Insert(m.keys, i, key)
	}
	m.values[key] = v
	return prev, replaced
}

func (m *sortedMap[V]) get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *sortedMap[V]) len() int {
	return len(m.keys)
}

// sortedKeys returns a copy of the keys in ascending order.
func (m *sortedMap[V]) sortedKeys() []string {
	return slices.Clone(m.keys)
}

// list returns the values in key order.
func (m *sortedMap[V]) list() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}
