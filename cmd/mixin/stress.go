package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chazu/mixin/vm"
	"golang.org/x/sync/errgroup"
)

// stressResult is what one stress run observed.
type stressResult struct {
	Goroutines int
	Iterations int
	Finalized  int32
	Freed      int32
	Deleted    bool
	Elapsed    time.Duration
}

func runStress(ctx context.Context, opts *options, args []string) (err error) {
	fs := flag.NewFlagSet("stress", flag.ContinueOnError)
	fs.SetOutput(opts.stderr)
	goroutines := fs.Int("n", opts.cfg.Stress.Goroutines, "Number of goroutines")
	iterations := fs.Int("iterations", opts.cfg.Stress.Iterations, "Iterations per goroutine")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *goroutines <= 0 || *iterations <= 0 {
		return errors.New("stress: -n and -iterations must be positive")
	}

	space, closeSpace, err := openSpace(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeSpace(); err == nil {
			err = cerr
		}
	}()

	res, err := stress(ctx, space, *goroutines, *iterations)
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.stdout, "stress: %d goroutines x %d iterations in %s\n",
		res.Goroutines, res.Iterations, res.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(opts.stdout, "finalize=%d free=%d deleted=%t\n", res.Finalized, res.Freed, res.Deleted)
	return nil
}

// stress hammers one object's reference counts from many goroutines while
// the creator drops its own reference concurrently, then checks that the
// object was torn down exactly once and its shell deleted.
func stress(ctx context.Context, space *vm.Space, goroutines, iterations int) (*stressResult, error) {
	res := &stressResult{Goroutines: goroutines, Iterations: iterations}
	var finalized, freed atomic.Int32
	cls := vm.NewClass("Stress",
		func(*vm.Object) { freed.Add(1) },
		func(*vm.Object) { finalized.Add(1) },
	)

	obj := space.New()
	obj.ClassPush(cls, nil)
	obj.WeakRef()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < goroutines; i++ {
		obj.Ref()
		g.Go(func() error {
			defer obj.Unref()
			for j := 0; j < iterations; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				obj.Ref()
				if !obj.WeakLock() {
					obj.Unref()
					return fmt.Errorf("weak lock failed on object %d while a strong reference was held", obj.ID())
				}
				obj.WeakRef()
				obj.WeakUnref()
				obj.Unref()
				obj.Unref()
			}
			return nil
		})
	}
	obj.Unref()
	err := g.Wait()
	res.Elapsed = time.Since(start)
	if err != nil {
		obj.WeakUnref()
		return nil, err
	}

	if obj.WeakLock() {
		obj.Unref()
		obj.WeakUnref()
		return nil, fmt.Errorf("weak lock succeeded on object %d after every strong reference was dropped", obj.ID())
	}
	obj.WeakUnref()

	res.Finalized = finalized.Load()
	res.Freed = freed.Load()
	res.Deleted = obj.Deleted()
	log().Debugf("stress: %+v", *res)

	if res.Finalized != 1 || res.Freed != 1 {
		return res, fmt.Errorf("teardown ran finalize %d times and free %d times", res.Finalized, res.Freed)
	}
	if !res.Deleted {
		return res, fmt.Errorf("object %d was not deleted", obj.ID())
	}
	return res, nil
}
