package pulse

import "context"

// Node is the narrow capability set the engine interacts with vertices
// through: one interface covers both input and non-input vertices,
// rather than a per-node-class type hierarchy. The engine dispatches
// between ApplyInput and Tick based on IsInputNode.
type Node interface {
	// Tick runs this vertex's recompute step for the given turn. It must
	// end by calling exactly one of Engine.OnNodePulse or
	// Engine.OnNodeIdlePulse, unless it issued a dynamic reattachment
	// that made its own level stale — in which case the engine re-enqueues
	// it and no pulse call is required this round.
	Tick(ctx context.Context, turn *Turn) error

	// ApplyInput runs on input vertices only, at the top of a turn's
	// admission phase. It reports whether the vertex actually changed.
	ApplyInput(ctx context.Context, turn *Turn) (bool, error)

	// DependencyCount is a static classification used when a vertex is
	// first constructed to decide whether it starts out flagged as a
	// root.
	DependencyCount() int

	// IsInputNode distinguishes input vertices, whose admission goes
	// through ApplyInput/OnInputChange rather than Tick.
	IsInputNode() bool

	// IsDynamicNode marks vertices allowed to call
	// OnDynamicNodeAttach/OnDynamicNodeDetach from within Tick (flatten
	// nodes and similar). The engine treats a dynamic-attach call from a
	// vertex that answers false here as a contract violation.
	IsDynamicNode() bool
}
