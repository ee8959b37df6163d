package vm

import (
	"sync/atomic"

	"github.com/chazu/mixin/flatmap"
)

// ObjectID identifies an Object for diagnostics. IDs start at 1.
type ObjectID uint64

var objectCounter atomic.Uint64

// Object is a reference-counted shell onto which classes are composed at
// run time.
//
// Each pushed class contributes one data value and may override methods
// declared by classes pushed before it. The class stack, the data store
// and the dispatch tables are not safe for concurrent mutation; the
// reference counts are.
//
// Every method is safe to call on a nil *Object and returns the zero value.
type Object struct {
	refs refState
	id   ObjectID

	classes      []classSlot                    // push order, most general first
	datas        flatmap.Map[ClassID, any]      // class -> data
	methods      flatmap.Map[Selector, *Method] // slot -> active method
	supermethods flatmap.Map[MethodID, *Method] // method -> method it overrode

	space   *Space
	deleted atomic.Bool
}

// classSlot is one entry of the class stack together with the overrides
// pushed while it was the top class, so removing it can undo exactly those.
type classSlot struct {
	class     *Class
	overrides []override
}

type override struct {
	selector Selector
	method   *Method
}

// ---------------------------------------------------------------------------
// Object creation
// ---------------------------------------------------------------------------

// New creates an object with no classes, one strong reference and no weak
// references. The caller owns the reference and must drop it with Unref.
func New() *Object {
	return newObject(nil)
}

func newObject(space *Space) *Object {
	obj := &Object{
		id:    ObjectID(objectCounter.Add(1)),
		space: space,
	}
	obj.refs.store(refCounts{strong: 1})
	return obj
}

// ID returns the object's identifier, or 0 for nil.
func (o *Object) ID() ObjectID {
	if o == nil {
		return 0
	}
	return o.id
}

// ---------------------------------------------------------------------------
// Strong references
// ---------------------------------------------------------------------------

// Ref adds a strong reference. It does nothing once the strong count has
// reached zero: an object being torn down cannot be resurrected, not even
// from its own Finalize or Free.
// Safe for concurrent use.
func (o *Object) Ref() {
	if o == nil {
		return
	}
	for {
		old := o.refs.load()
		if old.strong == 0 {
			assertf(false, "Ref", o.id, "object already released")
			return
		}
		next := old
		next.strong++
		if o.refs.cas(old, next) {
			return
		}
	}
}

// Unref drops a strong reference. Dropping the last one tears the object
// down: every class is finalized and then freed, most-derived first. The
// shell itself stays valid while weak references remain.
// Safe for concurrent use; teardown runs on the goroutine that dropped the
// last reference.
func (o *Object) Unref() {
	if o == nil {
		return
	}
	for {
		old := o.refs.load()
		if old.strong == 0 {
			return
		}
		next := old
		next.strong--
		last := old.strong == 1
		if last {
			// Hold a weak reference for the duration of teardown so a
			// concurrent WeakUnref cannot delete the shell underneath it.
			next.weak++
		}
		if !o.refs.cas(old, next) {
			continue
		}
		if last {
			o.teardown()
			o.WeakUnref()
		}
		return
	}
}

// Refs returns the number of strong references.
func (o *Object) Refs() uint32 {
	if o == nil {
		return 0
	}
	return o.refs.load().strong
}

// Expired reports whether the strong count has reached zero.
func (o *Object) Expired() bool {
	return o.Refs() == 0
}

// Deleted reports whether both counts reached zero and the shell was
// released. A deleted object must not be used again.
func (o *Object) Deleted() bool {
	if o == nil {
		return false
	}
	return o.deleted.Load()
}

// teardown finalizes every class from the top of the stack down, then pops
// and frees them in the same order, then clears the dispatch tables.
func (o *Object) teardown() {
	log().Debugf("object %d: tearing down %d classes", o.id, len(o.classes))

	// Finalize may push or remove classes. Walk a snapshot and skip any
	// class that has been removed since.
	stack := o.Classes()
	for i := len(stack) - 1; i >= 0; i-- {
		cls := stack[i]
		if cls.Finalize == nil || o.classIndex(cls) < 0 {
			continue
		}
		cls.Finalize(o)
		o.trace(EventFinalized, cls, 0, nil)
	}

	for len(o.classes) > 0 {
		cls := o.popClass()
		o.trace(EventFreed, cls, 0, nil)
	}

	assertf(o.datas.Empty(), "Unref", o.id, "%d data entries left after teardown", o.datas.Len())
	o.datas.Clear()
	o.methods.Clear()
	o.supermethods.Clear()
	o.trace(EventTornDown, nil, 0, nil)
}

// popClass calls the top class's Free, then drops its slot and data.
func (o *Object) popClass() *Class {
	top := len(o.classes) - 1
	cls := o.classes[top].class
	if cls.Free != nil {
		cls.Free(o)
	}
	// Free may have pushed or removed classes; find the slot again.
	if i := o.classIndex(cls); i >= 0 {
		o.classes[i] = classSlot{}
		o.classes = append(o.classes[:i], o.classes[i+1:]...)
	}
	o.datas.Erase(cls.ID())
	return cls
}

// live reports whether the shell may still be used, flagging use after
// deletion as an invariant violation.
func (o *Object) live(op string) bool {
	return assertf(!o.deleted.Load(), op, o.id, "object used after deletion")
}

// ---------------------------------------------------------------------------
// Class composition
// ---------------------------------------------------------------------------

// ClassPush composes cls onto the object with the given data, which may be
// nil for stateless classes. Pushing a class that is already present does
// nothing and keeps the data and overrides of the first push.
func (o *Object) ClassPush(cls *Class, data any) {
	if o == nil || cls == nil || !o.live("ClassPush") {
		return
	}
	id := cls.ID()
	if o.datas.Contains(id) {
		return
	}
	o.datas.Insert(id, data)
	o.classes = append(o.classes, classSlot{class: cls})
	o.trace(EventClassPushed, cls, 0, nil)
}

// ClassCheck reports whether cls has been pushed, and if so returns its
// data.
func (o *Object) ClassCheck(cls *Class) (any, bool) {
	if o == nil || cls == nil {
		return nil, false
	}
	return o.datas.Find(cls.ID())
}

// Is reports whether cls has been pushed.
func (o *Object) Is(cls *Class) bool {
	_, ok := o.ClassCheck(cls)
	return ok
}

// Data returns the data cls was pushed with, typed as T. It reports false
// when the class is absent or its data is not a T.
func Data[T any](o *Object, cls *Class) (T, bool) {
	var zero T
	data, ok := o.ClassCheck(cls)
	if !ok {
		return zero, false
	}
	t, ok := data.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// ClassRemove removes cls and every class pushed after it. For each class,
// from the top of the stack down, this reverts the overrides pushed while
// it was on top, calls its Free and drops its data. Finalize is not called.
// Does nothing if cls is not present.
func (o *Object) ClassRemove(cls *Class) {
	if o == nil || cls == nil || !o.live("ClassRemove") {
		return
	}
	idx := o.classIndex(cls)
	if idx < 0 {
		return
	}
	log().Debugf("object %d: removing %s and %d classes above it", o.id, cls, len(o.classes)-idx-1)

	for len(o.classes) > idx {
		slot := o.classes[len(o.classes)-1]
		for i := len(slot.overrides) - 1; i >= 0; i-- {
			ov := slot.overrides[i]
			o.unlinkMethod(ov.selector, ov.method)
		}
		o.classes[len(o.classes)-1].overrides = nil
		removed := o.popClass()
		o.trace(EventClassRemoved, removed, 0, nil)
	}
}

// Classes returns the pushed classes in push order.
func (o *Object) Classes() []*Class {
	if o == nil {
		return nil
	}
	out := make([]*Class, len(o.classes))
	for i, slot := range o.classes {
		out[i] = slot.class
	}
	return out
}

func (o *Object) classIndex(cls *Class) int {
	for i := len(o.classes) - 1; i >= 0; i-- {
		if o.classes[i].class == cls {
			return i
		}
	}
	return -1
}
