package circuit

import "github.com/nvandessel/pneumatic/internal/pressure"

// Elaborate resolves every sub-network in c (recursively) through r. Each
// reference gets its own instance, so two references to the same level never
// share pressure state. A customized reference simulates its private copy.
//
// References that cannot be resolved, or that would re-enter a level already
// being elaborated, are left without an instance and contribute nothing.
func (c *Circuit) Elaborate(r Resolver) {
	c.resolver = r
	c.elaborate(c.ancestors())
	c.markDirty()
}

// Retire drops every resolved instance, recursively. Private copies of
// customized references are kept.
func (c *Circuit) Retire() {
	for x := range c.grid {
		for y := range c.grid[x] {
			c.retireCell(&c.grid[x][y])
		}
	}
	c.markDirty()
}

func (c *Circuit) retireCell(el *Element) {
	if el.instance == nil {
		return
	}
	el.instance.Retire()
	el.instance.parent = nil
	el.instance = nil
}

func (c *Circuit) elaborate(path map[int]bool) {
	for x := range c.grid {
		for y := range c.grid[x] {
			c.elaborateCell(x, y, path)
		}
	}
}

func (c *Circuit) elaborateCell(x, y int, path map[int]bool) {
	el := &c.grid[x][y]
	c.retireCell(el)
	if el.Kind != KindSubcircuit {
		return
	}
	el.ports = pressure.MaskNone
	if c.resolver == nil {
		return
	}
	tmpl, ports, ok := c.resolver.Template(el.Level)
	if !ok {
		return
	}
	el.ports = ports
	if path[el.Level] {
		return
	}

	var inst *Circuit
	if el.custom != nil {
		inst = el.custom
	} else {
		inst = tmpl.detachedCopy()
		inst.clearState()
		inst.home = el.Level
	}
	inst.parent = c
	inst.resolver = c.resolver

	path[el.Level] = true
	inst.elaborate(path)
	delete(path, el.Level)

	el.instance = inst
}

// reelaborate resolves the cells at ps again after an edit.
func (c *Circuit) reelaborate(ps ...Pos) {
	path := c.ancestors()
	for _, p := range ps {
		c.elaborateCell(p.X, p.Y, path)
	}
}

// ancestors returns the levels of c and of every circuit enclosing it.
func (c *Circuit) ancestors() map[int]bool {
	path := make(map[int]bool)
	for cur := c; cur != nil; cur = cur.parent {
		if cur.home >= 0 {
			path[cur.home] = true
		}
	}
	return path
}

// clearState zeroes pressure and valve openness without touching nested
// circuits.
func (c *Circuit) clearState() {
	c.ns = [EdgeSize][EdgeSize]pressure.Node{}
	c.ew = [EdgeSize][EdgeSize]pressure.Node{}
	c.disconnected = pressure.Node{}
	for x := range c.grid {
		for y := range c.grid[x] {
			c.grid[x][y].Openness = 0
		}
	}
}

// Levels returns the set of level indices referenced directly by c,
// including references inside its customized sub-networks.
func (c *Circuit) Levels() map[int]bool {
	out := make(map[int]bool)
	c.collectLevels(out)
	return out
}

func (c *Circuit) collectLevels(out map[int]bool) {
	for x := range c.grid {
		for y := range c.grid[x] {
			el := &c.grid[x][y]
			if el.Kind != KindSubcircuit {
				continue
			}
			out[el.Level] = true
			if el.custom != nil {
				el.custom.collectLevels(out)
			}
		}
	}
}

// ContainsLevel reports whether level from's circuit reaches level target
// through sub-network references, directly or transitively. from == target
// counts as containing. The walk keeps a visited set, so malformed cyclic
// data terminates.
func ContainsLevel(r Resolver, from, target int) bool {
	if from == target {
		return true
	}
	visited := map[int]bool{from: true}
	stack := []int{from}
	for len(stack) > 0 {
		lvl := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		tmpl, _, ok := r.Template(lvl)
		if !ok || tmpl == nil {
			continue
		}
		for ref := range tmpl.Levels() {
			if ref == target {
				return true
			}
			if !visited[ref] {
				visited[ref] = true
				stack = append(stack, ref)
			}
		}
	}
	return false
}

// wouldCycle reports whether referencing level inside c makes some circuit
// contain itself.
func (c *Circuit) wouldCycle(level int) bool {
	for anc := range c.ancestors() {
		if anc == level {
			return true
		}
		if c.resolver != nil && ContainsLevel(c.resolver, level, anc) {
			return true
		}
	}
	return false
}

// RemoveReferences replaces every sub-network whose level satisfies drop
// with an empty cell, descending into customized copies. It does not record
// history. The number of removed references is returned.
func (c *Circuit) RemoveReferences(drop func(level int) bool) int {
	removed := 0
	for x := range c.grid {
		for y := range c.grid[x] {
			el := &c.grid[x][y]
			if el.Kind != KindSubcircuit {
				continue
			}
			if drop(el.Level) {
				c.retireCell(el)
				*el = Empty()
				removed++
				continue
			}
			if el.custom != nil {
				removed += el.custom.RemoveReferences(drop)
			}
		}
	}
	if removed > 0 {
		c.markDirty()
	}
	return removed
}
