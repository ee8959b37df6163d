package vm

import (
	"fmt"
	"sync/atomic"
)

// MethodID identifies a Method for the life of the process. Zero means
// "not yet assigned".
type MethodID uint32

var methodCounter atomic.Uint32

// Method is one implementation of a virtual slot. Impl is usually a
// function value; callers recover its type with Lookup or Super.
//
// Methods are compared by identity, so declare each one once and push the
// same *Method everywhere it is used.
type Method struct {
	Name string
	Impl any

	id atomic.Uint32
}

// NewMethod returns a Method wrapping impl.
func NewMethod(name string, impl any) *Method {
	return &Method{Name: name, Impl: impl}
}

// ID returns the method's process-unique identifier, assigning one on
// first use. Returns 0 for a nil method.
func (m *Method) ID() MethodID {
	if m == nil {
		return 0
	}
	if id := m.id.Load(); id != 0 {
		return MethodID(id)
	}
	m.id.CompareAndSwap(0, methodCounter.Add(1))
	return MethodID(m.id.Load())
}

func (m *Method) String() string {
	if m == nil {
		return "<nil method>"
	}
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("Method#%d", m.ID())
}
