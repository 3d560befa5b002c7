package pulse

import (
	"context"
	"time"

	"github.com/petermattis/goid"

	"github.com/haldor/pulse/ctxlog"
)

// Mode selects the engine's scheduling model.
type Mode int

const (
	// ModeSequential runs a level's working set sequentially on the
	// goroutine that called Propagate. The mode does not serialize turns:
	// turns submitted concurrently are ordered only by the per-vertex
	// gates their mark phases acquire.
	ModeSequential Mode = iota

	// ModeParallel runs a level's working set concurrently on a worker
	// pool.
	ModeParallel
)

// Engine is the propagation engine: the object a driver constructs once,
// registers vertices into via Attach, and then drives turn by turn. It
// is passed explicitly to every operation rather than reached through a
// package-level singleton, so a process can run more than one graph.
type Engine struct {
	mode        Mode
	parallelism int
	recorder    Recorder
	turns       *TurnQueue
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMode selects the scheduling model.
func WithMode(mode Mode) Option {
	return func(e *Engine) { e.mode = mode }
}

// WithParallelism bounds how many vertices in one level run concurrently
// in ModeParallel. Zero (the default) means unbounded.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// WithRecorder installs the instrumentation sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine constructs an Engine. The default mode is ModeSequential with
// no recorder.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		mode:  ModeSequential,
		turns: NewTurnQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewVertex is the on-node-create hook: bookkeeping only, no schedule
// effect. A higher-level builder is the expected caller; a driver wiring
// a graph by hand can call it directly.
func (e *Engine) NewVertex(node Node) *Vertex {
	return NewVertex(node)
}

// Attach is the on-node-attach hook: static edge mutation that must
// happen outside a turn. It links v as a successor of parent and
// recomputes v's level as 1 + max(predecessor level).
func (e *Engine) Attach(v, parent *Vertex) {
	unlock := lockForWrite(v, parent)
	defer unlock()

	v.addPredecessor(parent)
	parent.addSuccessor(v)
	v.setLevel(v.maxPredecessorLevelLocked())
}

// Detach is the on-node-detach hook: static edge removal outside a turn.
func (e *Engine) Detach(v, parent *Vertex) {
	unlock := lockForWrite(v, parent)
	defer unlock()

	v.removePredecessor(parent)
	parent.removeSuccessor(v)
	v.setLevel(v.maxPredecessorLevelLocked())
}

// Destroy is the on-node-destroy hook. A vertex is destroyed only when
// no successor references it; calling Destroy on a vertex that still has
// successors is a contract violation.
func (e *Engine) Destroy(v *Vertex) {
	if len(v.Successors()) != 0 {
		panic(newContractViolation("destroy called on vertex with live successors"))
	}
}

// BeginTurn mints a new Turn from the engine's monotonic turn source.
func (e *Engine) BeginTurn(flags TurnFlags) *Turn {
	return e.turns.Begin(flags)
}

// Propagate drives a single turn to completion. candidates must all be
// input vertices; each is admitted via ApplyInput, and those that report
// a change seed the mark phase and the propagation loop. Propagate
// returns only at turn completion or on the first user-transform error.
func (e *Engine) Propagate(ctx context.Context, turn *Turn, candidates []*Vertex) error {
	// The calling goroutine is registered with the turn only while it runs
	// ApplyInput; executeVertex registers it again around each Tick, so a
	// Tick that calls back into Propagate on the same turn is caught there.
	gid := goid.Get()
	exit := turn.enter(gid)

	logger := ctxlog.FromContext(ctx)
	logger.Debug("turn starting", "turn_id", turn.ID, "candidates", len(candidates))

	changed, err := e.admitInputs(ctx, turn, candidates)
	exit()
	if err != nil {
		e.turns.finish(turn)
		return err
	}

	if len(changed) == 0 {
		logger.Debug("idle turn", "turn_id", turn.ID)
		e.turns.finish(turn)
		return nil
	}

	e.markPhase(turn, changed)
	defer e.releaseOwnedVertices(turn)

	for _, v := range changed {
		e.OnInputChange(v, turn)
	}

	queue := NewLevelQueue()
	turn.queue = queue

	propagateErr := e.propagationLoop(ctx, turn, queue)

	e.turns.finish(turn)

	if propagateErr != nil {
		logger.Warn("turn aborted", "turn_id", turn.ID, "error", propagateErr)
		return propagateErr
	}

	logger.Debug("turn settled", "turn_id", turn.ID)
	return nil
}

func (e *Engine) admitInputs(ctx context.Context, turn *Turn, candidates []*Vertex) ([]*Vertex, error) {
	var changed []*Vertex
	for _, v := range candidates {
		if !v.Node.IsInputNode() {
			panic(newContractViolation("Propagate candidate " + v.ID.String() + " is not an input vertex"))
		}

		begin := time.Now().UnixNano()
		ok, err := v.Node.ApplyInput(ctx, turn)
		end := time.Now().UnixNano()

		if e.recorder != nil {
			e.recorder.Record(v.ID, turn.ID, begin, end)
		}

		if err != nil {
			return nil, newUserTransformError(v, turn, err)
		}
		if ok {
			changed = append(changed, v)
		}
	}
	return changed, nil
}

// markPhase is a breadth-first walk from the changed inputs outward
// along successor edges, setting FlagMarked and computing each marked
// vertex's wait-count as the number of marked predecessors. Ownership of
// each visited vertex is acquired via its ownerGate for the duration of
// the turn, making this walk also the point where concurrent turns with
// overlapping marked sets serialize against each other.
func (e *Engine) markPhase(turn *Turn, changed []*Vertex) {
	visited := make(map[*Vertex]bool, len(changed)*2)

	mark := func(v *Vertex) {
		v.owner.acquire(turn.ID)
		turn.trackOwned(v)
		v.AddFlag(FlagMarked)
		v.resetWaitCount()
		v.anyPredecessorPulsed.store(false)
		v.shouldUpdate.store(false)
		visited[v] = true
	}

	var worklist []*Vertex
	for _, v := range changed {
		if visited[v] {
			continue
		}
		mark(v)
		worklist = append(worklist, v)
	}

	for len(worklist) > 0 {
		v := worklist[0]
		worklist = worklist[1:]

		for _, s := range v.Successors() {
			if !visited[s] {
				mark(s)
				worklist = append(worklist, s)
			}
			s.incWaitCount()
		}
	}
}

func (e *Engine) releaseOwnedVertices(turn *Turn) {
	for _, v := range turn.ownedVertices() {
		v.RemoveFlag(FlagMarked)
		v.RemoveFlag(FlagChanged)
		v.shouldUpdate.store(false)
		v.owner.release()
	}
}

// OnInputChange is the engine's own reaction to ApplyInput returning
// true. It sets v's changed flag and releases v's successors exactly as
// a pulse would.
func (e *Engine) OnInputChange(v *Vertex, turn *Turn) {
	v.AddFlag(FlagChanged)
	e.releaseSuccessors(turn, v, true)
}

// OnNodePulse is called by a Node's own Tick implementation after a
// recomputation that produced a value change.
func (e *Engine) OnNodePulse(v *Vertex, turn *Turn) {
	v.AddFlag(FlagChanged)
	v.tickSettled = true
	e.releaseSuccessors(turn, v, true)
}

// OnNodeIdlePulse is called by a Node's own Tick implementation after a
// recomputation that produced no output.
func (e *Engine) OnNodeIdlePulse(v *Vertex, turn *Turn) {
	v.tickSettled = true
	e.releaseSuccessors(turn, v, false)
}

// releaseSuccessors implements the shared half of OnInputChange,
// OnNodePulse and OnNodeIdlePulse: record that v has settled for this
// turn, decrement every successor's wait-count by one, and when a
// successor's count reaches zero, push it if any of its predecessors
// pulsed this turn, or leave it settled (should-update false) otherwise.
func (e *Engine) releaseSuccessors(turn *Turn, v *Vertex, pulsed bool) {
	v.settledTurn.Store(turn.ID)

	for _, s := range v.Successors() {
		if pulsed {
			s.shouldUpdate.store(true)
			s.anyPredecessorPulsed.store(true)
		}

		remaining := s.decWaitCount()
		if remaining != 0 {
			continue
		}
		if !s.anyPredecessorPulsed.load() {
			continue
		}
		if s.flags.tryAdd(FlagQueued) {
			turn.schedule(s)
		}
	}
}

// propagationLoop drains the level queue level by level until empty.
func (e *Engine) propagationLoop(ctx context.Context, turn *Turn, queue *LevelQueue) error {
	e.flush(turn, queue)

	for {
		_, working, ok := queue.FetchNextLevel()
		if !ok {
			break
		}

		var err error
		switch e.mode {
		case ModeParallel:
			err = e.executeLevelParallel(ctx, turn, working)
		default:
			err = e.executeLevelSequential(ctx, turn, working)
		}

		for _, v := range working {
			v.RemoveFlag(FlagQueued)
		}

		if err != nil {
			return err
		}

		e.flush(turn, queue)
	}

	return nil
}

// flush moves every vertex scheduled via Turn.schedule into the level
// queue, setting its queued flag so the flag and actual queue membership
// never drift apart. This matters for a vertex a Tick just rescheduled
// into a later level via dynamic reattachment: the blanket sweep at the
// end of propagationLoop's current level clears the queued flag on every
// vertex that just ran, including one a reattachment re-queued mid-Tick;
// flush is what restores the flag before the vertex becomes visible to
// the next FetchNextLevel call. It runs only on the single driving
// goroutine, between parallel phases, which is the only place the level
// queue is touched — the queue itself need not be thread-safe.
func (e *Engine) flush(turn *Turn, queue *LevelQueue) {
	for _, v := range turn.drainPending() {
		v.AddFlag(FlagQueued)
		queue.Remove(v)
		queue.Push(v)
	}
}

func (e *Engine) executeLevelSequential(ctx context.Context, turn *Turn, working []*Vertex) error {
	for _, v := range working {
		if err := e.executeVertex(ctx, turn, v); err != nil {
			return err
		}
	}
	return nil
}

// executeVertex runs one vertex's Tick and validates the node-facing
// contract: Tick must end by calling exactly one of
// OnNodePulse/OnNodeIdlePulse, unless it short-circuited via a dynamic
// reattachment that made its own level stale.
func (e *Engine) executeVertex(ctx context.Context, turn *Turn, v *Vertex) error {
	gid := goid.Get()
	exit := turn.enter(gid)
	defer exit()

	v.tickSettled = false
	v.dynamicShortCircuit = false

	begin := time.Now().UnixNano()
	err := v.Node.Tick(ctx, turn)
	end := time.Now().UnixNano()

	if e.recorder != nil {
		e.recorder.Record(v.ID, turn.ID, begin, end)
	}

	if err != nil {
		return newUserTransformError(v, turn, err)
	}

	v.RemoveFlag(FlagRepeated)

	if !v.tickSettled && !v.dynamicShortCircuit {
		panic(newContractViolation("Tick for vertex " + v.ID.String() + " returned without pulsing, idle-pulsing or short-circuiting"))
	}
	if v.tickSettled {
		v.RemoveFlag(FlagInitial)
	}

	return nil
}
