// Package pulse implements a glitch-free functional-reactive propagation
// engine: a DAG of vertices wrapping user-supplied Node implementations,
// driven turn by turn by an Engine. Each turn admits a set of changed
// input vertices, marks every vertex reachable from them, and runs the
// marked set level by level — either sequentially or, in ModeParallel,
// with each level's working set forked across a worker pool and joined
// before the next level begins.
//
// The engine itself holds no global state; callers construct one
// Engine per graph via NewEngine and pass it explicitly to every
// operation.
package pulse
