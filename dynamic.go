package pulse

import "context"

// OnDynamicNodeAttach is called by a dynamic node's own Tick (the
// flatten-node pattern) to move child from oldParent to newParent
// mid-turn. OnDynamicNodeAttach performs the edge surgery, the level
// recomputation, any wait-count adjustment the edge change requires, and
// the downstream invalidation a level change requires.
//
// v is the vertex currently executing Tick (the dynamic node itself);
// it is used to set dynamicShortCircuit when child's level moves past
// v's own level, which lets executeVertex accept a Tick call that ends
// without a pulse this round.
func (e *Engine) OnDynamicNodeAttach(ctx context.Context, v, child, oldParent, newParent *Vertex, turn *Turn) error {
	if !v.Node.IsDynamicNode() {
		panic(newContractViolation("dynamic attach called from non-dynamic vertex " + v.ID.String()))
	}

	e.turns.mu.Lock()
	_, active := e.turns.active[turn.ID]
	e.turns.mu.Unlock()
	if !active {
		panic(newContractViolation("dynamic attach called outside a turn"))
	}

	// v is almost always child itself (the flatten-node pattern reattaches
	// its own predecessor edge from inside its own Tick), so this must be
	// read before child.setLevel below overwrites it — otherwise the
	// short-circuit check at the bottom of this function always compares
	// newLevel against the value it just wrote.
	origVLevel := v.Level()

	unlock := lockForWrite(child, oldParent, newParent)
	oldLevel := child.maxPredecessorLevelLocked()

	// child's wait-count, set during the mark phase, counts one edge per
	// marked predecessor that has not yet settled this turn. Changing the
	// predecessor set here must keep that count in sync with the edges
	// that will actually fire a decrement later in the turn — both checks
	// happen while still holding oldParent/newParent's shift locks, so a
	// concurrent Tick on either one is blocked from reading its successor
	// list until the edge change and the corresponding count adjustment
	// are both visible together.
	if oldParent != nil {
		child.removePredecessor(oldParent)
		oldParent.removeSuccessor(child)
		if oldParent.HasFlag(FlagMarked) && oldParent.settledTurn.Load() != turn.ID {
			child.decWaitCount()
		}
	}
	child.addPredecessor(newParent)
	newParent.addSuccessor(child)
	if newParent.HasFlag(FlagMarked) && newParent.settledTurn.Load() != turn.ID {
		child.incWaitCount()
	}

	newLevel := child.maxPredecessorLevelLocked()
	child.setLevel(newLevel)
	unlock()

	if newLevel == oldLevel {
		return nil
	}

	e.invalidateSuccessors(turn, child)

	if newLevel > origVLevel {
		v.dynamicShortCircuit = true
	}

	child.AddFlag(FlagRepeated)
	child.flags.add(FlagQueued)
	turn.schedule(child)

	return nil
}

// OnDynamicNodeDetach is called when a dynamic node drops a child with no
// replacement parent this turn. The child keeps its current level —
// nothing downstream needs invalidating, since a level can only need
// recomputation when a predecessor is added, never when one is removed —
// but it is no longer reachable from oldParent and so will not be
// re-marked by a future turn unless reattached. Like OnDynamicNodeAttach,
// it compensates child's wait-count if oldParent was itself marked and
// had not yet settled this turn.
func (e *Engine) OnDynamicNodeDetach(ctx context.Context, v, child, oldParent *Vertex, turn *Turn) error {
	if !v.Node.IsDynamicNode() {
		panic(newContractViolation("dynamic detach called from non-dynamic vertex " + v.ID.String()))
	}

	unlock := lockForWrite(child, oldParent)
	child.removePredecessor(oldParent)
	oldParent.removeSuccessor(child)
	if oldParent.HasFlag(FlagMarked) && oldParent.settledTurn.Load() != turn.ID {
		child.decWaitCount()
	}
	unlock()

	return nil
}

// invalidateSuccessors walks forward from start, recomputing the level of
// every vertex reachable through a successor edge whose predecessor set
// includes a vertex that just moved. A vertex is revisited until its
// level stops changing, since a single dynamic reattachment can ripple
// through several levels of downstream consumers in one pass.
func (e *Engine) invalidateSuccessors(turn *Turn, start *Vertex) {
	queue := []*Vertex{start}
	visiting := map[*Vertex]bool{start: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visiting[cur] = false

		for _, s := range cur.Successors() {
			before := s.Level()
			after := s.maxPredecessorLevel()
			if after == before {
				continue
			}
			s.setLevel(after)
			s.AddFlag(FlagRepeated)

			if s.HasFlag(FlagQueued) {
				turn.schedule(s)
			}

			if !visiting[s] {
				visiting[s] = true
				queue = append(queue, s)
			}
		}
	}
}
