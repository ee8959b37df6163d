package vm

import (
	"fmt"
	"sync/atomic"
)

// InvariantError reports a runtime invariant broken by the caller, such as
// pushing a method as its own override or referencing a deleted object.
// These are programming errors: in strict mode they panic with an
// *InvariantError, otherwise they are logged and the operation does nothing.
type InvariantError struct {
	Op     string
	Object ObjectID
	Msg    string
}

func (e *InvariantError) Error() string {
	if e.Object != 0 {
		return fmt.Sprintf("vm: %s on object %d: %s", e.Op, e.Object, e.Msg)
	}
	return fmt.Sprintf("vm: %s: %s", e.Op, e.Msg)
}

var strict atomic.Bool

func init() {
	strict.Store(strictDefault)
}

// SetStrict turns invariant panics on or off. Builds tagged mixindebug
// start with strict mode on.
func SetStrict(on bool) {
	strict.Store(on)
}

// Strict reports whether invariant violations panic.
func Strict() bool {
	return strict.Load()
}

// assertf reports an invariant violation when ok is false and returns ok.
func assertf(ok bool, op string, obj ObjectID, format string, args ...any) bool {
	if ok {
		return true
	}
	err := &InvariantError{Op: op, Object: obj, Msg: fmt.Sprintf(format, args...)}
	if strict.Load() {
		panic(err)
	}
	log().Criticalf("%s", err)
	return false
}
