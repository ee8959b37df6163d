package vm

import (
	"fmt"
	"strings"
	"testing"
)

func TestInspectNil(t *testing.T) {
	if Inspect(nil) != nil {
		t.Error("Inspect(nil) should return nil")
	}
	var in *Inspection
	if in.String() != "Object(nil)" {
		t.Errorf("String() = %q", in.String())
	}
}

func TestInspectOneLine(t *testing.T) {
	animal := NewClass("Animal", nil, nil)
	dog := NewClass("Dog", nil, nil)
	obj := New()
	defer obj.Unref()
	obj.ClassPush(animal, 4)
	obj.ClassPush(dog, "Fido")
	obj.WeakRef()
	defer obj.WeakUnref()

	got := obj.Inspect()
	want := fmt.Sprintf("Object#%d(refs=1 weak=1): Animal(4) Dog(Fido)", obj.ID())
	if got != want {
		t.Errorf("Inspect() = %q, want %q", got, want)
	}
}

func TestInspectExpired(t *testing.T) {
	obj := New()
	obj.WeakRef()
	obj.Unref()
	defer obj.WeakUnref()

	in := Inspect(obj)
	if !in.Expired || in.Deleted {
		t.Errorf("Expired=%v Deleted=%v, want true/false", in.Expired, in.Deleted)
	}
	if !strings.Contains(in.String(), " expired") {
		t.Errorf("String() = %q, should mention expired", in.String())
	}
}

func TestInspectMethodsAndOverrides(t *testing.T) {
	base := NewClass("Base", nil, nil)
	derived := NewClass("Derived", nil, nil)
	sel := Virtual("InspectTest.speak")

	obj := New()
	defer obj.Unref()
	obj.ClassPush(base, nil)
	obj.MethodPush(sel, NewMethod("Base.speak", nil))
	obj.ClassPush(derived, nil)
	obj.MethodPush(sel, NewMethod("Derived.speak", nil))

	in := Inspect(obj)
	if len(in.Classes) != 2 {
		t.Fatalf("len(Classes) = %d, want 2", len(in.Classes))
	}
	if ov := in.Classes[1].Overrides; len(ov) != 1 || ov[0] != "InspectTest.speak=Derived.speak" {
		t.Errorf("Derived overrides = %v", ov)
	}
	if len(in.Methods) != 1 {
		t.Fatalf("len(Methods) = %d, want 1", len(in.Methods))
	}
	if chain := strings.Join(in.Methods[0].Chain, ","); chain != "Derived.speak,Base.speak" {
		t.Errorf("chain = %s", chain)
	}

	text := in.Format()
	for _, want := range []string{
		"class Base",
		"class Derived",
		"override InspectTest.speak=Derived.speak",
		"method InspectTest.speak: Derived.speak -> Base.speak",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Format() missing %q:\n%s", want, text)
		}
	}
}
