package pulse

import "sync/atomic"

// VertexFlags is a compact bitset of per-vertex status bits.
type VertexFlags uint16

const (
	FlagNone VertexFlags = 0

	// FlagQueued is set iff the vertex currently sits in the engine's
	// level queue. Moves in lockstep with queue membership.
	FlagQueued VertexFlags = 1 << iota

	// FlagMarked is set during the mark phase for every vertex reachable
	// from a changed input this turn. Only marked vertices participate.
	FlagMarked

	// FlagChanged is set iff the vertex's most recent Tick/ApplyInput in
	// the current turn reported a value change (a pulse).
	FlagChanged

	// FlagDeferred marks a vertex whose execution was postponed pending
	// a dynamic reattachment outcome.
	FlagDeferred

	// FlagRepeated marks a vertex that must run again this turn — either
	// because its own level changed mid-turn, or because invalidate-
	// successors bumped a descendant's level after it already ran.
	FlagRepeated

	// FlagInitial marks a vertex on its first-ever Tick, before any
	// prior turn has settled a value for it.
	FlagInitial

	// FlagRoot marks a vertex with no predecessors (an input vertex, by
	// construction of the graph).
	FlagRoot
)

// atomicFlags is a lock-free bitset with check-and-set semantics, needed
// because flags are read and mutated across goroutines during a parallel
// level: wait-count and should-update are relaxed atomics for the same
// reason, and the same discipline applies to the flag bits that gate
// queue admission.
type atomicFlags struct {
	bits atomic.Uint32
}

func (f *atomicFlags) has(flag VertexFlags) bool {
	return f.bits.Load()&uint32(flag) != 0
}

func (f *atomicFlags) add(flag VertexFlags) {
	for {
		old := f.bits.Load()
		next := old | uint32(flag)
		if old == next || f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (f *atomicFlags) remove(flag VertexFlags) {
	for {
		old := f.bits.Load()
		next := old &^ uint32(flag)
		if old == next || f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (f *atomicFlags) set(flags VertexFlags) {
	f.bits.Store(uint32(flags))
}

func (f *atomicFlags) snapshot() VertexFlags {
	return VertexFlags(f.bits.Load())
}

// tryAdd atomically sets flag and reports whether this call was the one
// that transitioned it from unset to set. Used to make "push iff not
// already queued" race-free across concurrently pulsing predecessors.
func (f *atomicFlags) tryAdd(flag VertexFlags) bool {
	for {
		old := f.bits.Load()
		if old&uint32(flag) != 0 {
			return false
		}
		if f.bits.CompareAndSwap(old, old|uint32(flag)) {
			return true
		}
	}
}
