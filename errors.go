package pulse

import "fmt"

// Three error conditions are distinguished by meaning rather than by
// exported type: a user-transform failure surfaces out of Propagate and
// aborts the turn; a contract violation is a programmer error and panics
// with an assertion-style message; a mark-phase inconsistency is treated
// as a contract violation rather than a distinct type.

// UserTransformError wraps an error raised by user-supplied Tick or
// ApplyInput code. Propagate returns it unchanged except for this
// wrapping, which records which vertex and turn it happened in.
type UserTransformError struct {
	VertexID string
	TurnID   uint64
	Err      error
}

func (e *UserTransformError) Error() string {
	return fmt.Sprintf("pulse: vertex %s failed during turn %d: %v", e.VertexID, e.TurnID, e.Err)
}

func (e *UserTransformError) Unwrap() error { return e.Err }

func newUserTransformError(v *Vertex, turn *Turn, err error) *UserTransformError {
	return &UserTransformError{VertexID: v.ID.String(), TurnID: turn.ID, Err: err}
}

// ContractViolation is a programmer error: Tick returned without
// pulsing, idle-pulsing, or short-circuiting via dynamic reattachment;
// a dynamic attach was attempted outside a turn; a wait-count would have
// gone negative; or the engine was re-entered from the same goroutine
// within a turn. These are not recoverable and the engine panics with
// one rather than returning it.
type ContractViolation struct {
	Message string
}

func (e *ContractViolation) Error() string {
	return "pulse: contract violation: " + e.Message
}

func newContractViolation(msg string) *ContractViolation {
	return &ContractViolation{Message: msg}
}
