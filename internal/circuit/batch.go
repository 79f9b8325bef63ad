package circuit

import "github.com/nvandessel/pneumatic/internal/pressure"

// Batch is the compiled form of a circuit's live topology: typed buckets of
// operations bound directly to pressure nodes. Every operation reads
// committed values and writes pending deltas, so order within a bucket does
// not matter. The bucket order itself is fixed.
type Batch struct {
	nodes   []*pressure.Node
	vented  []*pressure.Node
	pipe2   [][2]*pressure.Node
	pipe3   [][3]*pressure.Node
	pipe4   [][4]*pressure.Node
	valves  []valveOp
	sources []*pressure.Node

	seen     map[*pressure.Node]struct{}
	ventSeen map[*pressure.Node]struct{}
	external map[*pressure.Node]struct{}
}

// valveOp holds the valve's neighbor view already rotated by its direction.
type valveOp struct {
	el  *Element
	adj pressure.Adjacent
}

// BatchStats summarizes the size of each bucket.
type BatchStats struct {
	Nodes   int
	Vented  int
	Pipe2   int
	Pipe3   int
	Pipe4   int
	Valves  int
	Sources int
}

// newBatch starts an empty batch. External nodes are stepped by the caller
// and are never pre'd or post'd here.
func newBatch(external pressure.Adjacent) *Batch {
	b := &Batch{
		seen:     make(map[*pressure.Node]struct{}),
		ventSeen: make(map[*pressure.Node]struct{}),
		external: make(map[*pressure.Node]struct{}),
	}
	for _, nd := range external {
		if nd != nil {
			b.external[nd] = struct{}{}
		}
	}
	return b
}

func (b *Batch) register(nd *pressure.Node) {
	if _, ok := b.external[nd]; ok {
		return
	}
	if _, ok := b.seen[nd]; ok {
		return
	}
	b.seen[nd] = struct{}{}
	b.nodes = append(b.nodes, nd)
}

func (b *Batch) registered(nd *pressure.Node) bool {
	_, ok := b.seen[nd]
	return ok
}

func (b *Batch) vent(nd *pressure.Node) {
	if _, ok := b.external[nd]; ok {
		return
	}
	b.register(nd)
	if _, ok := b.ventSeen[nd]; ok {
		return
	}
	b.ventSeen[nd] = struct{}{}
	b.vented = append(b.vented, nd)
}

// junction adds one equalizing junction over the directions in m.
// Fewer than two directions form no junction.
func (b *Batch) junction(m pressure.Mask, adj pressure.Adjacent) {
	var nodes [4]*pressure.Node
	k := 0
	for _, d := range pressure.Directions {
		if m.Has(d) {
			nodes[k] = adj[d]
			b.register(adj[d])
			k++
		}
	}
	switch k {
	case 2:
		b.pipe2 = append(b.pipe2, [2]*pressure.Node{nodes[0], nodes[1]})
	case 3:
		b.pipe3 = append(b.pipe3, [3]*pressure.Node{nodes[0], nodes[1], nodes[2]})
	case 4:
		b.pipe4 = append(b.pipe4, nodes)
	}
}

func (b *Batch) valve(el *Element, adj pressure.Adjacent) {
	for _, nd := range adj {
		b.register(nd)
	}
	b.valves = append(b.valves, valveOp{el: el, adj: adj.Rotate(el.Dir)})
}

func (b *Batch) source(nd *pressure.Node) {
	b.register(nd)
	b.sources = append(b.sources, nd)
}

// Evaluate runs one simulation step over the batch.
func (b *Batch) Evaluate() {
	for _, nd := range b.nodes {
		nd.Pre()
	}
	for _, nd := range b.vented {
		nd.Vent()
	}
	for i := range b.pipe2 {
		equalize(b.pipe2[i][:])
	}
	for i := range b.pipe3 {
		equalize(b.pipe3[i][:])
	}
	for i := range b.pipe4 {
		equalize(b.pipe4[i][:])
	}
	for _, op := range b.valves {
		valveStep(op.el, op.adj)
	}
	for _, nd := range b.sources {
		sourceStep(nd)
	}
	for _, nd := range b.nodes {
		nd.Post()
	}
}

// Stats reports bucket sizes.
func (b *Batch) Stats() BatchStats {
	return BatchStats{
		Nodes:   len(b.nodes),
		Vented:  len(b.vented),
		Pipe2:   len(b.pipe2),
		Pipe3:   len(b.pipe3),
		Pipe4:   len(b.pipe4),
		Valves:  len(b.valves),
		Sources: len(b.sources),
	}
}

// equalize moves (a-b)/N between every pair of an N-way junction. Each pair
// contributes equal and opposite deltas, so the junction conserves pressure.
func equalize(nodes []*pressure.Node) {
	arity := pressure.Pressure(len(nodes))
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			d := (nodes[i].Value - nodes[j].Value) / arity
			nodes[i].Move(-d)
			nodes[j].Move(d)
		}
	}
}

// sourceStep drives a node toward full pressure.
func sourceStep(nd *pressure.Node) {
	nd.Move((pressure.Full - nd.Value) / 2)
}

// valveStep moves pressure along the valve's W-E path in proportion to its
// openness, then lets openness chase the N-S control differential. Only a
// positive differential opens the valve. r is already rotated.
func valveStep(el *Element, r pressure.Adjacent) {
	flow := (r[pressure.West].Value - r[pressure.East].Value) * el.Openness / pressure.Full / 2
	r[pressure.West].Move(-flow)
	r[pressure.East].Move(flow)

	target := r[pressure.North].Value - r[pressure.South].Value
	if target < 0 {
		target = 0
	}
	if target > pressure.Full {
		target = pressure.Full
	}
	el.Openness += (target - el.Openness) / ValveResistance
}
