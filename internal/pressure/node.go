// Package pressure provides the fixed-point pressure node shared between
// adjacent grid cells and the rotation-aware neighbor view used by elements.
//
// All arithmetic is integer with truncating division. Results must be
// bit-identical across runs, so nothing here uses floating point.
package pressure

// Pressure is a fixed-point pressure value scaled by Scale.
type Pressure int64

const (
	// Scale is the fixed-point scale factor: one percent of full pressure.
	Scale Pressure = 1024

	// Full is 100% pressure, the upper clamp for every node.
	Full Pressure = 100 * Scale
)

// Node is a single pressure value with a pending delta. Contributions made
// during a step go to MoveNext and are committed by Post, so every operation
// in a step reads the same committed Value.
type Node struct {
	Value    Pressure
	MoveNext Pressure
	Vented   Pressure
	Touched  bool
}

// Move accumulates a signed delta to apply at the end of the step.
func (n *Node) Move(amount Pressure) {
	n.MoveNext += amount
	n.Touched = true
}

// Vent leaks half of the current value to atmosphere.
func (n *Node) Vent() {
	half := n.Value / 2
	n.MoveNext -= half
	n.Vented += half
	if half != 0 {
		n.Touched = true
	}
}

// Apply forces the node toward target percent at drive percent strength.
// A drive of 0 leaves the node floating.
func (n *Node) Apply(target, drive Pressure) {
	n.MoveNext += ((target*Scale - n.Value) * drive / 100) / 2
}

// Pre clears per-step bookkeeping.
func (n *Node) Pre() {
	n.Vented = 0
	n.Touched = false
}

// Post commits the pending delta and clamps the value to [0, Full].
func (n *Node) Post() {
	n.Value += n.MoveNext
	n.MoveNext = 0
	if n.Value > Full {
		n.Value = Full
	}
	if n.Value < 0 {
		n.Value = 0
	}
}

// Reset returns the node to zero pressure.
func (n *Node) Reset() {
	*n = Node{}
}

// Percent converts a fixed-point value to a rounded 0-100 percentage.
func Percent(p Pressure) Pressure {
	return (p + Scale/2) / Scale
}

// FromPercent converts a percentage to a fixed-point value.
func FromPercent(pc Pressure) Pressure {
	return pc * Scale
}
