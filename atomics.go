package pulse

import "sync/atomic"

// int32atomic and boolAtomic are thin wrappers kept distinct from the
// stdlib atomic.Int32/atomic.Bool so the zero value of a Vertex never
// needs an explicit constructor. Wait-count and should-update are read
// and written with relaxed ordering; correctness rests on the
// level-barrier fork/join serializing access between levels, not on any
// ordering stronger than plain atomic load/store.
type int32atomic struct {
	v atomic.Int32
}

func (a *int32atomic) load() int32        { return a.v.Load() }
func (a *int32atomic) store(n int32)      { a.v.Store(n) }
func (a *int32atomic) add(delta int32) int32 { return a.v.Add(delta) }

type boolAtomic struct {
	v atomic.Bool
}

func (a *boolAtomic) load() bool     { return a.v.Load() }
func (a *boolAtomic) store(b bool)   { a.v.Store(b) }
