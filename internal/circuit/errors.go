package circuit

import "errors"

// Refused edits return one of these, possibly wrapped with the offending
// position. A refused edit leaves the circuit unchanged.
var (
	ErrCircular      = errors.New("sub-network would contain itself")
	ErrBlocked       = errors.New("cell is fixed")
	ErrOutOfBounds   = errors.New("position outside grid")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrNotSubcircuit = errors.New("cell is not a sub-network")
	ErrUnknownLevel  = errors.New("unknown level")
	ErrNotAdjacent   = errors.New("path steps must be orthogonally adjacent")
)
