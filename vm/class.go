package vm

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// ClassWords is the size of Class in machine words (256 bytes on 64-bit
// platforms). Modules built against different versions of this package
// share Class values, so the size and field order of Class never change.
// New fields must take their space from the reserved words.
const ClassWords = 32

// classReservedWords is what remains after Name (2 words), Free, Finalize
// and the ID word.
const classReservedWords = ClassWords - 5

// ClassID identifies a Class for the life of the process. Zero means
// "not yet assigned".
type ClassID uint32

var classCounter atomic.Uint32

// Class describes a reusable bundle of per-object data and teardown
// behavior that can be pushed onto any Object.
//
// A Class is identified by its ID, which is assigned the first time it is
// needed, never by its Name. Classes are normally package-level variables
// and must not be copied after first use.
type Class struct {
	// Name is used for diagnostics only.
	Name string

	// Free releases the class's data when the object is torn down or the
	// class is removed. It runs after the Free of every class pushed later,
	// so it must not call virtual methods.
	Free func(obj *Object)

	// Finalize runs before any Free during teardown, most-derived class
	// first. All classes are still present, so virtual calls are allowed.
	Finalize func(obj *Object)

	id atomic.Uint32
	_  [classReservedWords]uintptr
}

// The array length is zero only when Class is exactly ClassWords words.
var _ [0]struct{} = [unsafe.Sizeof(Class{}) - ClassWords*unsafe.Sizeof(uintptr(0))]struct{}{}

// NewClass returns a Class with the given hooks. Either hook may be nil.
func NewClass(name string, free, finalize func(obj *Object)) *Class {
	return &Class{Name: name, Free: free, Finalize: finalize}
}

// ID returns the class's process-unique identifier, assigning one on first
// use. Returns 0 for a nil class.
func (c *Class) ID() ClassID {
	if c == nil {
		return 0
	}
	if id := c.id.Load(); id != 0 {
		return ClassID(id)
	}
	c.id.CompareAndSwap(0, classCounter.Add(1))
	return ClassID(c.id.Load())
}

// String returns the class name, or a placeholder built from its ID.
func (c *Class) String() string {
	if c == nil {
		return "<nil class>"
	}
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("Class#%d", c.ID())
}
