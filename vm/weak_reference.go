package vm

// ---------------------------------------------------------------------------
// Weak references
// ---------------------------------------------------------------------------

// A weak reference keeps the object shell valid without keeping its
// classes alive. Holders observe liveness with WeakLock, which only hands
// out a strong reference while the object has not begun teardown.

// WeakRef adds a weak reference. Each one must be dropped with WeakUnref.
// Safe for concurrent use.
func (o *Object) WeakRef() {
	if o == nil {
		return
	}
	for {
		old := o.refs.load()
		if old.strong == 0 && old.weak == 0 {
			assertf(false, "WeakRef", o.id, "object already deleted")
			return
		}
		next := old
		next.weak++
		if o.refs.cas(old, next) {
			return
		}
	}
}

// WeakUnref drops a weak reference. The shell is deleted when this drops
// the last weak reference after the last strong one is gone.
// Safe for concurrent use.
func (o *Object) WeakUnref() {
	if o == nil {
		return
	}
	for {
		old := o.refs.load()
		if old.weak == 0 {
			assertf(false, "WeakUnref", o.id, "no weak reference to drop")
			return
		}
		next := old
		next.weak--
		if !o.refs.cas(old, next) {
			continue
		}
		if next.weak == 0 && next.strong == 0 {
			o.deleteShell()
		}
		return
	}
}

// WeakRefs returns the number of weak references. While a teardown is
// running this includes one reference held by the runtime itself.
func (o *Object) WeakRefs() uint32 {
	if o == nil {
		return 0
	}
	return o.refs.load().weak
}

// WeakLock tries to turn a weak reference into a strong one. It returns
// true and adds a strong reference, which the caller must drop with Unref,
// only if the strong count was nonzero at the moment of the increment. It
// never increments a count that has reached zero.
// Safe for concurrent use.
func (o *Object) WeakLock() bool {
	if o == nil {
		return false
	}
	for {
		old := o.refs.load()
		if old.strong == 0 {
			return false
		}
		next := old
		next.strong++
		if o.refs.cas(old, next) {
			return true
		}
	}
}

// deleteShell releases an object whose strong and weak counts are both
// zero. Teardown has already emptied the class stack.
func (o *Object) deleteShell() {
	if !o.deleted.CompareAndSwap(false, true) {
		return
	}
	log().Debugf("object %d: deleted", o.id)
	o.trace(EventDeleted, nil, 0, nil)
	o.classes = nil
	if o.space != nil {
		o.space.forget(o)
	}
}
