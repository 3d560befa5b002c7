// Package pulsetest provides small, deterministic Node implementations
// and a trace recorder for exercising the engine in tests, factored into
// a reusable package since the same handful of test graphs — linear
// chains, diamonds, flatten scenarios — repeat across many test files.
package pulsetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/haldor/pulse"
)

// Valuer is read by a downstream cell to pull its predecessor's current
// settled value. Every cell in this package implements it.
type Valuer interface {
	Value() int
}

// InputCell is a root vertex whose value is pushed in from outside a
// turn via SetNext, then admitted by ApplyInput at the top of the next
// Propagate call that names it as a candidate.
type InputCell struct {
	mu      sync.Mutex
	current int
	next    int
	pending bool
}

func NewInputCell(initial int) *InputCell {
	return &InputCell{current: initial}
}

// SetNext stages a value to be admitted the next time this cell is
// passed to Engine.Propagate as a candidate. Staging the same value the
// cell already holds still calls ApplyInput but must report no change.
func (c *InputCell) SetNext(v int) {
	c.mu.Lock()
	c.next = v
	c.pending = true
	c.mu.Unlock()
}

func (c *InputCell) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *InputCell) ApplyInput(ctx context.Context, turn *pulse.Turn) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending {
		return false, nil
	}
	c.pending = false

	if c.next == c.current {
		return false, nil
	}
	c.current = c.next
	return true, nil
}

func (c *InputCell) Tick(ctx context.Context, turn *pulse.Turn) error {
	return fmt.Errorf("pulsetest: Tick called on an input cell")
}

func (c *InputCell) DependencyCount() int { return 0 }
func (c *InputCell) IsInputNode() bool    { return true }
func (c *InputCell) IsDynamicNode() bool  { return false }

// ComputedCell recomputes fn over its dependencies' current values on
// every Tick, pulsing when the result differs from its last settled
// value and idle-pulsing otherwise. The engine must be told about the
// vertex wrapping this cell via Bind before any turn reaches it.
type ComputedCell struct {
	deps []Valuer
	fn   func(deps []int) int

	engine *pulse.Engine
	vertex *pulse.Vertex

	mu    sync.Mutex
	value int
	set   bool
}

func NewComputedCell(fn func(deps []int) int, deps ...Valuer) *ComputedCell {
	return &ComputedCell{deps: deps, fn: fn}
}

// Bind records the engine and vertex this cell's Tick must report back
// to. Call it once, right after pulse.Engine.NewVertex.
func (c *ComputedCell) Bind(engine *pulse.Engine, v *pulse.Vertex) {
	c.engine = engine
	c.vertex = v
}

func (c *ComputedCell) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *ComputedCell) Tick(ctx context.Context, turn *pulse.Turn) error {
	args := make([]int, len(c.deps))
	for i, d := range c.deps {
		args[i] = d.Value()
	}
	result := c.fn(args)

	c.mu.Lock()
	changed := !c.set || result != c.value
	c.value = result
	c.set = true
	c.mu.Unlock()

	if changed {
		c.engine.OnNodePulse(c.vertex, turn)
	} else {
		c.engine.OnNodeIdlePulse(c.vertex, turn)
	}
	return nil
}

func (c *ComputedCell) ApplyInput(ctx context.Context, turn *pulse.Turn) (bool, error) {
	return false, fmt.Errorf("pulsetest: ApplyInput called on a computed cell")
}

func (c *ComputedCell) DependencyCount() int { return len(c.deps) }
func (c *ComputedCell) IsInputNode() bool    { return false }
func (c *ComputedCell) IsDynamicNode() bool  { return false }

// FilterCell pulses only when pred accepts the upstream value, and
// idle-pulses otherwise — the "filtered-out pulse is absorbed, not
// forwarded" scenario.
type FilterCell struct {
	dep  Valuer
	pred func(int) bool

	engine *pulse.Engine
	vertex *pulse.Vertex

	mu    sync.Mutex
	value int
}

func NewFilterCell(pred func(int) bool, dep Valuer) *FilterCell {
	return &FilterCell{dep: dep, pred: pred}
}

func (c *FilterCell) Bind(engine *pulse.Engine, v *pulse.Vertex) {
	c.engine = engine
	c.vertex = v
}

func (c *FilterCell) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *FilterCell) Tick(ctx context.Context, turn *pulse.Turn) error {
	v := c.dep.Value()

	if !c.pred(v) {
		c.engine.OnNodeIdlePulse(c.vertex, turn)
		return nil
	}

	c.mu.Lock()
	c.value = v
	c.mu.Unlock()

	c.engine.OnNodePulse(c.vertex, turn)
	return nil
}

func (c *FilterCell) ApplyInput(ctx context.Context, turn *pulse.Turn) (bool, error) {
	return false, fmt.Errorf("pulsetest: ApplyInput called on a filter cell")
}

func (c *FilterCell) DependencyCount() int { return 1 }
func (c *FilterCell) IsInputNode() bool    { return false }
func (c *FilterCell) IsDynamicNode() bool  { return false }

// FlattenCell is the dynamic-node pattern: it holds a selector cell
// choosing among a fixed set of source cells, and reattaches itself to
// whichever source is currently selected whenever the selector's value
// changes. Sources and their vertices must be supplied up front along
// with the vertex each one maps to, since OnDynamicNodeAttach needs the
// *pulse.Vertex on both ends of the edge.
type FlattenCell struct {
	selector   Valuer
	sources    []Valuer
	sourceVert []*pulse.Vertex

	engine *pulse.Engine
	vertex *pulse.Vertex

	mu       sync.Mutex
	value    int
	selected int
	attached *pulse.Vertex
}

func NewFlattenCell(selector Valuer, sources []Valuer, sourceVertices []*pulse.Vertex) *FlattenCell {
	return &FlattenCell{
		selector:   selector,
		sources:    sources,
		sourceVert: sourceVertices,
		selected:   -1,
	}
}

func (c *FlattenCell) Bind(engine *pulse.Engine, v *pulse.Vertex) {
	c.engine = engine
	c.vertex = v
}

func (c *FlattenCell) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *FlattenCell) Tick(ctx context.Context, turn *pulse.Turn) error {
	idx := c.selector.Value()

	c.mu.Lock()
	needsReattach := idx != c.selected
	oldAttached := c.attached
	c.mu.Unlock()

	if needsReattach {
		var oldParent *pulse.Vertex
		if oldAttached != nil {
			oldParent = oldAttached
		}
		newParent := c.sourceVert[idx]

		if err := c.engine.OnDynamicNodeAttach(ctx, c.vertex, c.vertex, oldParent, newParent, turn); err != nil {
			return err
		}

		c.mu.Lock()
		c.selected = idx
		c.attached = newParent
		c.mu.Unlock()

		if c.vertex.DynamicShortCircuit() {
			// The reattachment raised this vertex's own level; the engine
			// has already rescheduled it to run again once its new
			// predecessor set has settled. Reading sources[idx] now would
			// race its not-yet-run predecessor.
			return nil
		}
	}

	result := c.sources[idx].Value()

	c.mu.Lock()
	changed := result != c.value
	c.value = result
	c.mu.Unlock()

	if changed {
		c.engine.OnNodePulse(c.vertex, turn)
	} else {
		c.engine.OnNodeIdlePulse(c.vertex, turn)
	}
	return nil
}

func (c *FlattenCell) ApplyInput(ctx context.Context, turn *pulse.Turn) (bool, error) {
	return false, fmt.Errorf("pulsetest: ApplyInput called on a flatten cell")
}

func (c *FlattenCell) DependencyCount() int { return 1 }
func (c *FlattenCell) IsInputNode() bool    { return false }
func (c *FlattenCell) IsDynamicNode() bool  { return true }

// TraceRecorder implements pulse.Recorder by appending one entry per
// Tick/ApplyInput call, in call order. Tests use it to assert on
// execution order without depending on wall-clock timing.
type TraceRecorder struct {
	mu      sync.Mutex
	entries []TraceEntry
}

type TraceEntry struct {
	VertexID string
	TurnID   uint64
}

func NewTraceRecorder() *TraceRecorder {
	return &TraceRecorder{}
}

func (r *TraceRecorder) Record(vertexID uuid.UUID, turnID uint64, beginNanos, endNanos int64) {
	r.mu.Lock()
	r.entries = append(r.entries, TraceEntry{VertexID: vertexID.String(), TurnID: turnID})
	r.mu.Unlock()
}

func (r *TraceRecorder) Entries() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
