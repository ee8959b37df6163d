package vm

import "sync/atomic"

// refCounts is one snapshot of an object's strong and weak counts.
type refCounts struct {
	strong uint32
	weak   uint32
}

// refState holds both counts in a single atomic word, strong in the low 32
// bits and weak in the high 32 bits, so that every transition reads and
// writes the pair together. All transitions are compare-and-swap loops:
// a count is never moved away from a value other than the one just
// observed.
type refState struct {
	v atomic.Uint64
}

func (c refCounts) pack() uint64 {
	return uint64(c.weak)<<32 | uint64(c.strong)
}

func unpackRefs(v uint64) refCounts {
	return refCounts{strong: uint32(v), weak: uint32(v >> 32)}
}

func (s *refState) load() refCounts {
	return unpackRefs(s.v.Load())
}

func (s *refState) store(c refCounts) {
	s.v.Store(c.pack())
}

func (s *refState) cas(old, next refCounts) bool {
	return s.v.CompareAndSwap(old.pack(), next.pack())
}
