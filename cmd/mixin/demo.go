package main

import (
	"fmt"
	"strings"

	"github.com/chazu/mixin/examples/zoo"
	"github.com/chazu/mixin/vm"
	"github.com/chazu/mixin/vm/wire"
)

// runDemo walks an object from a bare shell to a Dog and back to nothing,
// printing an inspection after every step.
func runDemo(opts *options) (err error) {
	space, closeSpace, err := openSpace(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeSpace(); err == nil {
			err = cerr
		}
	}()

	// In cbor mode stdout carries only the inspection sequence.
	say := func(format string, args ...any) {
		out := opts.stdout
		if opts.format == "cbor" {
			out = opts.stderr
		}
		fmt.Fprintf(out, format+"\n", args...)
	}
	show := func(step string, obj *vm.Object) error {
		in := vm.Inspect(obj)
		if opts.format == "cbor" {
			data, err := wire.MarshalInspection(in)
			if err != nil {
				return fmt.Errorf("%s: %w", step, err)
			}
			_, err = opts.stdout.Write(data)
			return err
		}
		fmt.Fprintf(opts.stdout, "== %s ==\n%s", step, in.Format())
		return nil
	}

	var hooks zoo.Log
	obj := space.New()
	if err := show("create", obj); err != nil {
		return err
	}

	zoo.SpecializeAnimal(obj, &hooks)
	if err := show("push Animal", obj); err != nil {
		return err
	}
	say("speak: %s", zoo.Speak(obj))

	zoo.SpecializeDog(obj, &hooks)
	zoo.SetName(obj, "Fido")
	zoo.SetLegs(obj, 3)
	if err := show("push Dog", obj); err != nil {
		return err
	}
	say("speak: %s", zoo.Speak(obj))
	say("pet: %s", zoo.Pet(obj))
	say("super of %s: %s", obj.MethodGet(zoo.SpeakSlot), obj.SupermethodGet(obj.MethodGet(zoo.SpeakSlot)))

	obj.WeakRef()
	obj.Unref()
	if err := show("unref", obj); err != nil {
		return err
	}
	say("weak lock after release: %t", obj.WeakLock())
	say("teardown: %s", strings.Join(hooks.Entries(), ", "))

	obj.WeakUnref()
	stats := space.Stats()
	say("space: created=%d deleted=%d live=%d", stats.Created, stats.Deleted, stats.Live)
	return nil
}
