package pulse

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Vertex is the engine's per-node bookkeeping record. It wraps a
// user-supplied Node and carries every piece of state the engine needs
// to schedule and run it: level, wait-count, flags, and the edge lists
// the shift lock protects.
//
// A Vertex never owns its successors — ownership of the graph runs
// parent-to-child through whatever anchors the surrounding builder
// layer uses; Vertex only keeps non-owning back-references, avoiding a
// reference cycle between every parent and child.
type Vertex struct {
	ID   uuid.UUID
	Node Node

	level    int32atomic
	newLevel int32atomic

	waitCount            int32atomic
	anyPredecessorPulsed boolAtomic
	shouldUpdate         boolAtomic

	// settledTurn holds the id of the turn in which this vertex last
	// called OnInputChange/OnNodePulse/OnNodeIdlePulse. A dynamic
	// reattachment compares it against the current turn to tell whether
	// a parent it is about to gain or lose an edge from has already run
	// its one Tick for this turn, so child's wait-count can be adjusted
	// for the edge change without double-counting or going negative.
	settledTurn atomic.Uint64

	flags atomicFlags

	// shiftLock guards the predecessor/successor edge lists: writers
	// mutate them during static attach/detach and dynamic reattachment;
	// readers are a vertex's parents walking its successor list to fan
	// out a pulse.
	shiftLock sync.RWMutex

	predecessors []*Vertex
	successors   []*Vertex

	owner ownerGate

	// Transient per-Tick bookkeeping, touched only by the single
	// goroutine currently executing this vertex's Tick within a given
	// level — never concurrently with itself, so plain fields suffice.
	tickSettled         bool
	dynamicShortCircuit bool
}

// NewVertex constructs a vertex around a Node. It does not attach it to
// the graph; callers invoke Engine.Attach for each predecessor before the
// vertex is reachable from any turn's mark phase.
func NewVertex(node Node) *Vertex {
	v := &Vertex{
		ID:   uuid.New(),
		Node: node,
	}
	if node.DependencyCount() == 0 {
		v.flags.add(FlagRoot)
	}
	v.flags.add(FlagInitial)
	return v
}

// DynamicShortCircuit reports whether the current Tick call already
// moved this vertex's own level via a dynamic reattachment (dynamic.go's
// OnDynamicNodeAttach sets this). A dynamic node's Tick must check this
// after reattaching and, if true, return without pulsing — the engine
// has already rescheduled the vertex to run again at its new level.
func (v *Vertex) DynamicShortCircuit() bool { return v.dynamicShortCircuit }

func (v *Vertex) Level() int32    { return v.level.load() }
func (v *Vertex) setLevel(l int32) { v.level.store(l) }

func (v *Vertex) NewLevel() int32     { return v.newLevel.load() }
func (v *Vertex) setNewLevel(l int32) { v.newLevel.store(l) }

func (v *Vertex) WaitCount() int32 { return v.waitCount.load() }

func (v *Vertex) resetWaitCount() { v.waitCount.store(0) }

func (v *Vertex) incWaitCount() int32 { return v.waitCount.add(1) }

func (v *Vertex) decWaitCount() int32 {
	n := v.waitCount.add(-1)
	if n < 0 {
		panic(newContractViolation("DecReadyCount below zero for vertex " + v.ID.String()))
	}
	return n
}

// HasFlag, AddFlag, RemoveFlag and SetFlags expose the flag bitset
// through a small set of accessor helpers over a compact bit layout.
func (v *Vertex) HasFlag(f VertexFlags) bool   { return v.flags.has(f) }
func (v *Vertex) AddFlag(f VertexFlags)        { v.flags.add(f) }
func (v *Vertex) RemoveFlag(f VertexFlags)     { v.flags.remove(f) }
func (v *Vertex) SetFlags(f VertexFlags)       { v.flags.set(f) }
func (v *Vertex) Flags() VertexFlags           { return v.flags.snapshot() }

// Successors returns a snapshot of the current successor list, taken
// under the shift lock's reader side.
func (v *Vertex) Successors() []*Vertex {
	v.shiftLock.RLock()
	defer v.shiftLock.RUnlock()

	out := make([]*Vertex, len(v.successors))
	copy(out, v.successors)
	return out
}

// Predecessors returns a snapshot of the current predecessor list under
// the shift lock's reader side.
func (v *Vertex) Predecessors() []*Vertex {
	v.shiftLock.RLock()
	defer v.shiftLock.RUnlock()

	out := make([]*Vertex, len(v.predecessors))
	copy(out, v.predecessors)
	return out
}

// addSuccessor and addPredecessor are called with the shift lock already
// held for writing by the caller (attach/detach, static or dynamic).
func (v *Vertex) addSuccessor(s *Vertex) {
	for _, existing := range v.successors {
		if existing == s {
			return
		}
	}
	v.successors = append(v.successors, s)
}

func (v *Vertex) removeSuccessor(s *Vertex) {
	for i, existing := range v.successors {
		if existing == s {
			v.successors = append(v.successors[:i], v.successors[i+1:]...)
			return
		}
	}
}

func (v *Vertex) addPredecessor(p *Vertex) {
	for _, existing := range v.predecessors {
		if existing == p {
			return
		}
	}
	v.predecessors = append(v.predecessors, p)
	v.flags.remove(FlagRoot)
}

func (v *Vertex) removePredecessor(p *Vertex) {
	for i, existing := range v.predecessors {
		if existing == p {
			v.predecessors = append(v.predecessors[:i], v.predecessors[i+1:]...)
			if len(v.predecessors) == 0 {
				v.flags.add(FlagRoot)
			}
			return
		}
	}
}

// maxPredecessorLevel computes 1 + max(level(p)) over the current
// predecessor set — the level formula: a non-negative integer equal to
// one plus the maximum level of current predecessors, with leaves at
// level 0.
func (v *Vertex) maxPredecessorLevel() int32 {
	v.shiftLock.RLock()
	defer v.shiftLock.RUnlock()
	return v.maxPredecessorLevelLocked()
}

// maxPredecessorLevelLocked is the lock-free core of maxPredecessorLevel,
// for callers that already hold v's shift lock (e.g. Engine.Attach, which
// must mutate the edge and recompute the level as one atomic step).
func (v *Vertex) maxPredecessorLevelLocked() int32 {
	if len(v.predecessors) == 0 {
		return 0
	}

	max := int32(-1)
	for _, p := range v.predecessors {
		if l := p.Level(); l > max {
			max = l
		}
	}
	return max + 1
}

// lockForWrite locks the shift locks of the given vertices for writing, in
// a deterministic order keyed by vertex id, so that concurrent calls
// touching overlapping vertex sets (e.g. two dynamic reattachments sharing
// a parent) cannot deadlock against each other. It returns an unlock
// function that releases every lock it acquired.
func lockForWrite(vs ...*Vertex) func() {
	unique := make([]*Vertex, 0, len(vs))
	seen := make(map[*Vertex]bool, len(vs))
	for _, v := range vs {
		if v == nil || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].ID.String() < unique[j].ID.String()
	})

	for _, v := range unique {
		v.shiftLock.Lock()
	}

	return func() {
		for i := len(unique) - 1; i >= 0; i-- {
			unique[i].shiftLock.Unlock()
		}
	}
}
