package vm

import "time"

// EventKind identifies a lifecycle transition of an Object.
type EventKind uint8

const (
	EventCreated EventKind = iota + 1
	EventClassPushed
	EventClassRemoved
	EventMethodPushed
	EventMethodRemoved
	EventFinalized
	EventFreed
	EventTornDown
	EventDeleted
)

var eventKindNames = [...]string{
	EventCreated:       "created",
	EventClassPushed:   "class-pushed",
	EventClassRemoved:  "class-removed",
	EventMethodPushed:  "method-pushed",
	EventMethodRemoved: "method-removed",
	EventFinalized:     "finalized",
	EventFreed:         "freed",
	EventTornDown:      "torn-down",
	EventDeleted:       "deleted",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) && eventKindNames[k] != "" {
		return eventKindNames[k]
	}
	return "unknown"
}

// ParseEventKind returns the kind with the given name, or 0.
func ParseEventKind(name string) EventKind {
	for k, n := range eventKindNames {
		if n == name && n != "" {
			return EventKind(k)
		}
	}
	return 0
}

// Event records one lifecycle transition.
type Event struct {
	Kind     EventKind `cbor:"1,keyasint"`
	Object   ObjectID  `cbor:"2,keyasint"`
	Class    string    `cbor:"3,keyasint,omitempty"`
	Selector string    `cbor:"4,keyasint,omitempty"`
	Method   string    `cbor:"5,keyasint,omitempty"`
	Refs     uint32    `cbor:"6,keyasint"`
	Weak     uint32    `cbor:"7,keyasint"`
	At       int64     `cbor:"8,keyasint"` // unix nanoseconds
}

// Tracer receives lifecycle events from objects created by a Space.
// Teardown events are delivered on whichever goroutine dropped the last
// strong reference, so implementations must be safe for concurrent use.
type Tracer interface {
	Trace(ev Event)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(ev Event)

// Trace calls f(ev).
func (f TracerFunc) Trace(ev Event) {
	f(ev)
}

func (o *Object) trace(kind EventKind, cls *Class, sel Selector, m *Method) {
	if o.space == nil || o.space.tracer == nil {
		return
	}
	refs := o.refs.load()
	ev := Event{
		Kind:   kind,
		Object: o.id,
		Refs:   refs.strong,
		Weak:   refs.weak,
		At:     time.Now().UnixNano(),
	}
	if cls != nil {
		ev.Class = cls.String()
	}
	if sel != 0 {
		ev.Selector = sel.String()
	}
	if m != nil {
		ev.Method = m.String()
	}
	o.space.tracer.Trace(ev)
}
