// Package flatmap implements a small open-addressing hash table for
// pointer-sized integer keys.
//
// The table uses linear probing with backward-shift deletion, so there are
// no tombstones: an empty slot always terminates a probe sequence. The zero
// key is reserved as the empty-slot marker and must never be inserted.
//
// A Map is not safe for concurrent use.
package flatmap

// Key is the set of key types a Map accepts.
type Key interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint | ~uintptr
}

const (
	// MinCapacity is the capacity of a new or cleared map.
	MinCapacity = 4

	// 2^64 / golden ratio
	hashMultiplier = 0x9E3779B97F4A7C15
)

type entry[K Key, V any] struct {
	key   K
	value V
}

// Map is an open-addressing hash map. The zero value is an empty map ready
// to use.
type Map[K Key, V any] struct {
	table []entry[K, V]
	mask  int
	size  int
}

// New returns an empty map with the minimum capacity allocated.
func New[K Key, V any]() *Map[K, V] {
	m := &Map[K, V]{}
	m.reset(MinCapacity)
	return m
}

func (m *Map[K, V]) reset(capacity int) {
	m.table = make([]entry[K, V], capacity)
	m.mask = capacity - 1
	m.size = 0
}

func (m *Map[K, V]) hash(k K) int {
	return int(uint64(k) * hashMultiplier & uint64(m.mask))
}

func (m *Map[K, V]) rehash(capacity int) {
	old := m.table
	m.reset(capacity)
	for _, e := range old {
		if e.key != 0 {
			m.Insert(e.key, e.value)
		}
	}
}

// Insert adds or replaces the value for k.
// The table doubles whenever the load would exceed one half.
// Panics if k is zero.
func (m *Map[K, V]) Insert(k K, v V) {
	if k == 0 {
		panic("flatmap: zero key is reserved")
	}
	if m.table == nil {
		m.reset(MinCapacity)
	}
	if m.size*2 >= len(m.table) {
		m.rehash(len(m.table) * 2)
	}

	i := m.hash(k)
	for m.table[i].key != 0 && m.table[i].key != k {
		i = (i + 1) & m.mask
	}
	if m.table[i].key == 0 {
		m.size++
	}
	m.table[i] = entry[K, V]{key: k, value: v}
}

func (m *Map[K, V]) slot(k K) int {
	if m.size == 0 || k == 0 {
		return -1
	}
	for i := m.hash(k); m.table[i].key != 0; i = (i + 1) & m.mask {
		if m.table[i].key == k {
			return i
		}
	}
	return -1
}

// Find returns the value stored for k and whether it was present.
func (m *Map[K, V]) Find(k K) (V, bool) {
	if i := m.slot(k); i >= 0 {
		return m.table[i].value, true
	}
	var zero V
	return zero, false
}

// Ptr returns a pointer to the value stored for k, or nil if k is absent.
// The pointer is invalidated by the next Insert, Erase or Clear.
func (m *Map[K, V]) Ptr(k K) *V {
	if i := m.slot(k); i >= 0 {
		return &m.table[i].value
	}
	return nil
}

// Contains reports whether k is present.
func (m *Map[K, V]) Contains(k K) bool {
	return m.slot(k) >= 0
}

// Erase removes k. It does nothing if k is absent.
//
// Entries following the freed slot are shifted back into the gap whenever
// the gap lies between their home slot and their current slot, which keeps
// every remaining key reachable from its home without tombstones.
func (m *Map[K, V]) Erase(k K) {
	i := m.slot(k)
	if i < 0 {
		return
	}
	m.size--
	for j := (i + 1) & m.mask; m.table[j].key != 0; j = (j + 1) & m.mask {
		home := m.hash(m.table[j].key)
		if (i-home)&m.mask < (j-home)&m.mask {
			m.table[i] = m.table[j]
			i = j
		}
	}
	m.table[i] = entry[K, V]{}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.size
}

// Cap returns the number of slots in the table.
func (m *Map[K, V]) Cap() int {
	return len(m.table)
}

// Empty reports whether the map has no entries.
func (m *Map[K, V]) Empty() bool {
	return m.size == 0
}

// Clear removes all entries and shrinks the table to MinCapacity.
func (m *Map[K, V]) Clear() {
	if len(m.table) == MinCapacity {
		clear(m.table)
		m.size = 0
		return
	}
	m.reset(MinCapacity)
}

// Range calls fn for each entry in slot order until fn returns false.
// fn must not modify the map.
func (m *Map[K, V]) Range(fn func(k K, v V) bool) {
	for _, e := range m.table {
		if e.key == 0 {
			continue
		}
		if !fn(e.key, e.value) {
			return
		}
	}
}
