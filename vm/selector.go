package vm

import "sync"

// Selector identifies a virtual method slot. Every override of a slot is
// pushed and looked up under the same Selector. Zero is never a valid
// selector.
type Selector uint32

// SelectorTable interns slot names such as "Animal.speak" to Selectors.
//
// Interning gives every module that names the same slot the same numeric
// identity without a central registry of function addresses.
//
// The table is append-only and safe for concurrent use.
type SelectorTable struct {
	mu     sync.RWMutex
	byName map[string]Selector // name -> ID
	byID   []string            // ID -> name; index 0 is reserved
}

// NewSelectorTable creates a new empty selector table.
func NewSelectorTable() *SelectorTable {
	return &SelectorTable{
		byName: make(map[string]Selector),
		byID:   make([]string, 1, 64),
	}
}

// Intern returns the Selector for a name, creating a new one if needed.
func (st *SelectorTable) Intern(name string) Selector {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byName[name]; ok {
		return id
	}

	id := Selector(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the Selector for a name, or 0 if it was never interned.
func (st *SelectorTable) Lookup(name string) Selector {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.byName[name]
}

// Name returns the name of a Selector, or "" if invalid.
func (st *SelectorTable) Name(id Selector) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if id == 0 || int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned selectors.
func (st *SelectorTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID) - 1
}

// selectors is the process-wide table behind Virtual.
var selectors = NewSelectorTable()

// Virtual returns the process-wide Selector for a slot name. Declare slots
// once, usually as package-level variables:
//
//	var speak = vm.Virtual("Animal.speak")
func Virtual(name string) Selector {
	return selectors.Intern(name)
}

// String returns the slot name the selector was interned from.
func (s Selector) String() string {
	if name := selectors.Name(s); name != "" {
		return name
	}
	return "<unknown selector>"
}
