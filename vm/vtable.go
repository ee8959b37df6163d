package vm

// The dispatch table maps each Selector to the most recently pushed method
// for it. Every method pushed over an existing one remembers the method it
// replaced as its supermethod, so the table holds one chain per selector:
//
//	methods[sel] -> m3, supermethods[m3] -> m2, supermethods[m2] -> m1
//
// Overrides are undone by unlinking methods from these chains rather than
// by rebuilding the table.

// MethodPush installs m as the active method for sel. If sel already has a
// method, that method becomes m's supermethod, unless m already records
// one. Pushing a method that is already in sel's chain is an invariant
// violation and leaves the chain unchanged. The override is recorded against the class currently on top of the
// stack so ClassRemove can revert it.
func (o *Object) MethodPush(sel Selector, m *Method) {
	if o == nil || sel == 0 || m == nil || !o.live("MethodPush") {
		return
	}
	if cur, ok := o.methods.Find(sel); ok {
		if !assertf(!o.inChain(cur, m), "MethodPush", o.id, "%s is already in the chain of %s", m, sel) {
			return
		}
		if !o.supermethods.Contains(m.ID()) {
			o.supermethods.Insert(m.ID(), cur)
		}
	}
	o.methods.Insert(sel, m)

	if n := len(o.classes); n > 0 {
		top := &o.classes[n-1]
		top.overrides = append(top.overrides, override{selector: sel, method: m})
	}
	o.trace(EventMethodPushed, nil, sel, m)
}

// MethodGet returns the active method for sel, or nil if none was pushed.
func (o *Object) MethodGet(sel Selector) *Method {
	if o == nil {
		return nil
	}
	m, _ := o.methods.Find(sel)
	return m
}

// SupermethodGet returns the method m overrode, or nil if m is the base of
// its chain or unknown.
func (o *Object) SupermethodGet(m *Method) *Method {
	if o == nil || m == nil {
		return nil
	}
	s, _ := o.supermethods.Find(m.ID())
	return s
}

// MethodRemove removes m and every method pushed over it from sel's chain,
// then reinstalls the method m overrode, if any. Does nothing if m is not
// in sel's chain.
func (o *Object) MethodRemove(sel Selector, m *Method) {
	if o == nil || m == nil || !o.live("MethodRemove") {
		return
	}
	head, ok := o.methods.Find(sel)
	if !ok || !o.inChain(head, m) {
		return
	}
	below := o.SupermethodGet(m)

	for cur := head; cur != nil; {
		next := o.SupermethodGet(cur)
		o.supermethods.Erase(cur.ID())
		o.forgetOverride(sel, cur)
		o.trace(EventMethodRemoved, nil, sel, cur)
		if cur == m {
			break
		}
		cur = next
	}

	if below != nil {
		o.methods.Insert(sel, below)
	} else {
		o.methods.Erase(sel)
	}
}

// Chain returns sel's methods from the active one down to the base.
func (o *Object) Chain(sel Selector) []*Method {
	if o == nil {
		return nil
	}
	var chain []*Method
	limit := o.supermethods.Len() + 1
	for m := o.MethodGet(sel); m != nil && len(chain) <= limit; m = o.SupermethodGet(m) {
		chain = append(chain, m)
	}
	return chain
}

// inChain reports whether m is reachable from head through supermethods.
// The walk is bounded so a corrupted chain cannot loop forever.
func (o *Object) inChain(head, m *Method) bool {
	limit := o.supermethods.Len() + 1
	for cur, n := head, 0; cur != nil && n <= limit; cur, n = o.SupermethodGet(cur), n+1 {
		if cur == m {
			return true
		}
	}
	return false
}

// unlinkMethod reverts a single override recorded by a class slot. The
// method is normally the head of its chain; if something was pushed over
// it outside any class, it is spliced out of the middle instead.
func (o *Object) unlinkMethod(sel Selector, m *Method) {
	head, ok := o.methods.Find(sel)
	if !ok {
		return
	}
	below, hasBelow := o.supermethods.Find(m.ID())

	if head == m {
		if hasBelow {
			o.methods.Insert(sel, below)
		} else {
			o.methods.Erase(sel)
		}
		o.supermethods.Erase(m.ID())
		return
	}

	limit := o.supermethods.Len() + 1
	for cur, n := head, 0; cur != nil && n <= limit; n++ {
		next, ok := o.supermethods.Find(cur.ID())
		if !ok {
			return
		}
		if next == m {
			if hasBelow {
				o.supermethods.Insert(cur.ID(), below)
			} else {
				o.supermethods.Erase(cur.ID())
			}
			o.supermethods.Erase(m.ID())
			return
		}
		cur = next
	}
}

// forgetOverride drops the record of (sel, m) from whichever class slot
// holds it.
func (o *Object) forgetOverride(sel Selector, m *Method) {
	for i := len(o.classes) - 1; i >= 0; i-- {
		ovs := o.classes[i].overrides
		for j := len(ovs) - 1; j >= 0; j-- {
			if ovs[j].selector == sel && ovs[j].method == m {
				o.classes[i].overrides = append(ovs[:j], ovs[j+1:]...)
				return
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Typed dispatch
// ---------------------------------------------------------------------------

// Lookup returns the active method for sel as an F. It reports false when
// no method is installed or its Impl is not an F, which lets a virtual
// call fall back to a default.
func Lookup[F any](o *Object, sel Selector) (F, bool) {
	return implAs[F](o.MethodGet(sel))
}

// Super returns the method m overrode as an F, for calling the overridden
// implementation from inside an override.
func Super[F any](o *Object, m *Method) (F, bool) {
	return implAs[F](o.SupermethodGet(m))
}

func implAs[F any](m *Method) (F, bool) {
	var zero F
	if m == nil {
		return zero, false
	}
	f, ok := m.Impl.(F)
	if !ok {
		return zero, false
	}
	return f, true
}
