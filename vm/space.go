package vm

import (
	"sync"
	"sync/atomic"

	"github.com/chazu/mixin/flatmap"
)

// ---------------------------------------------------------------------------
// Space: registry of live object shells
// ---------------------------------------------------------------------------

// Space tracks the objects created through it until their shells are
// deleted, and forwards their lifecycle events to an optional Tracer.
// Objects created with New belong to no Space.
//
// A Space is safe for concurrent use.
type Space struct {
	tracer Tracer

	mu      sync.Mutex
	objects flatmap.Map[ObjectID, *Object]

	created atomic.Uint64
	deleted atomic.Uint64
}

// SpaceOption configures a Space.
type SpaceOption func(*Space)

// WithTracer sends the lifecycle events of the space's objects to t.
func WithTracer(t Tracer) SpaceOption {
	return func(s *Space) {
		s.tracer = t
	}
}

// SpaceStats summarizes a Space.
type SpaceStats struct {
	Created uint64
	Deleted uint64
	Live    int
}

// NewSpace creates an empty Space.
func NewSpace(opts ...SpaceOption) *Space {
	s := &Space{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New creates an object registered with the space. Like the package-level
// New, the caller owns one strong reference.
func (s *Space) New() *Object {
	obj := newObject(s)

	s.mu.Lock()
	s.objects.Insert(obj.id, obj)
	s.mu.Unlock()

	s.created.Add(1)
	obj.trace(EventCreated, nil, 0, nil)
	return obj
}

// Lookup returns the live shell with the given ID, or nil. The result is
// borrowed: take a reference with WeakLock before holding on to it.
func (s *Space) Lookup(id ObjectID) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, _ := s.objects.Find(id)
	return obj
}

// Live returns the number of shells that have not been deleted, including
// expired shells kept alive by weak references.
func (s *Space) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.Len()
}

// Each calls fn for every live shell until fn returns false. The set is
// captured before the first call, so fn may create or release objects.
func (s *Space) Each(fn func(obj *Object) bool) {
	s.mu.Lock()
	objs := make([]*Object, 0, s.objects.Len())
	s.objects.Range(func(_ ObjectID, obj *Object) bool {
		objs = append(objs, obj)
		return true
	})
	s.mu.Unlock()

	for _, obj := range objs {
		if !fn(obj) {
			return
		}
	}
}

// Stats returns creation and deletion totals.
func (s *Space) Stats() SpaceStats {
	return SpaceStats{
		Created: s.created.Load(),
		Deleted: s.deleted.Load(),
		Live:    s.Live(),
	}
}

func (s *Space) forget(obj *Object) {
	s.mu.Lock()
	s.objects.Erase(obj.id)
	s.mu.Unlock()
	s.deleted.Add(1)
}
