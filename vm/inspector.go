package vm

import (
	"fmt"
	"slices"
	"strings"
)

// Inspection is a structured snapshot of an Object for debugging tools.
type Inspection struct {
	Object  ObjectID           `cbor:"1,keyasint"`
	Refs    uint32             `cbor:"2,keyasint"`
	Weak    uint32             `cbor:"3,keyasint"`
	Expired bool               `cbor:"4,keyasint"`
	Deleted bool               `cbor:"5,keyasint"`
	Classes []ClassInspection  `cbor:"6,keyasint,omitempty"`
	Methods []MethodInspection `cbor:"7,keyasint,omitempty"`
}

// ClassInspection describes one pushed class, in push order.
type ClassInspection struct {
	Name      string   `cbor:"1,keyasint"`
	ID        ClassID  `cbor:"2,keyasint"`
	Data      string   `cbor:"3,keyasint"`           // %v of the data value
	Overrides []string `cbor:"4,keyasint,omitempty"` // "selector=method"
}

// MethodInspection describes one dispatch chain.
type MethodInspection struct {
	Selector string   `cbor:"1,keyasint"`
	Chain    []string `cbor:"2,keyasint"` // active method first
}

// Inspect returns a snapshot of obj, or nil for a nil object.
// Not safe to call concurrently with class or method changes.
func Inspect(obj *Object) *Inspection {
	if obj == nil {
		return nil
	}
	refs := obj.refs.load()
	result := &Inspection{
		Object:  obj.id,
		Refs:    refs.strong,
		Weak:    refs.weak,
		Expired: refs.strong == 0,
		Deleted: obj.deleted.Load(),
	}

	for _, slot := range obj.classes {
		data, _ := obj.datas.Find(slot.class.ID())
		ci := ClassInspection{
			Name: slot.class.String(),
			ID:   slot.class.ID(),
			Data: fmt.Sprintf("%v", data),
		}
		for _, ov := range slot.overrides {
			ci.Overrides = append(ci.Overrides, ov.selector.String()+"="+ov.method.String())
		}
		result.Classes = append(result.Classes, ci)
	}

	var sels []Selector
	obj.methods.Range(func(sel Selector, _ *Method) bool {
		sels = append(sels, sel)
		return true
	})
	slices.SortFunc(sels, func(a, b Selector) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, sel := range sels {
		mi := MethodInspection{Selector: sel.String()}
		for _, m := range obj.Chain(sel) {
			mi.Chain = append(mi.Chain, m.String())
		}
		result.Methods = append(result.Methods, mi)
	}

	return result
}

// Inspect returns a one-line summary listing the counts and every class
// with its data in push order, e.g.
//
//	Object#3(refs=1 weak=0): Animal(&{0}) Dog(&{Fido})
func (o *Object) Inspect() string {
	if o == nil {
		return "Object(nil)"
	}
	return Inspect(o).String()
}

// String renders the one-line form of the inspection.
func (in *Inspection) String() string {
	if in == nil {
		return "Object(nil)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Object#%d(refs=%d weak=%d", in.Object, in.Refs, in.Weak)
	if in.Deleted {
		b.WriteString(" deleted")
	} else if in.Expired {
		b.WriteString(" expired")
	}
	b.WriteString("):")
	for _, c := range in.Classes {
		fmt.Fprintf(&b, " %s(%s)", c.Name, c.Data)
	}
	return b.String()
}

// Format renders the multi-line form of the inspection, including
// overrides and dispatch chains.
func (in *Inspection) Format() string {
	if in == nil {
		return "Object(nil)\n"
	}
	var b strings.Builder
	b.WriteString(in.String())
	b.WriteByte('\n')
	for _, c := range in.Classes {
		fmt.Fprintf(&b, "  class %s #%d data=%s\n", c.Name, c.ID, c.Data)
		for _, ov := range c.Overrides {
			fmt.Fprintf(&b, "    override %s\n", ov)
		}
	}
	for _, m := range in.Methods {
		fmt.Fprintf(&b, "  method %s: %s\n", m.Selector, strings.Join(m.Chain, " -> "))
	}
	return b.String()
}
