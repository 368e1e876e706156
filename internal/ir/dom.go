package ir

// DomTree answers dominance queries for a snapshot of a function's CFG. It
// must be rebuilt after edges change.
//
// Immediate dominators are computed with the iterative algorithm of Cooper,
// Harvey and Kennedy over reverse postorder; a pre/post numbering of the
// resulting tree then makes Dominates constant time.
type DomTree struct {
	idom     []BlockID
	children [][]BlockID
	pre      []int32
	post     []int32
	reach    []bool
}

// BuildDomTree computes the dominator tree of fn's reachable blocks
func BuildDomTree(fn *Function) *DomTree {
	n := fn.NumBlockIDs()
	t := &DomTree{
		idom:     make([]BlockID, n),
		children: make([][]BlockID, n),
		pre:      make([]int32, n),
		post:     make([]int32, n),
		reach:    make([]bool, n),
	}
	for i := range t.idom {
		t.idom[i] = NoBlock
	}

	order := ReversePostorder(fn)
	if len(order) == 0 {
		return t
	}
	rpo := make([]int, n)
	for i, id := range order {
		rpo[id] = i
		t.reach[id] = true
	}
	preds := Predecessors(fn)

	entry := order[0]
	t.idom[entry] = entry
	changed := true
	for changed {
		changed = false
		for _, b := range order[1:] {
			newIdom := NoBlock
			for _, p := range preds.Of(b) {
				if t.idom[p] == NoBlock {
					continue
				}
				if newIdom == NoBlock {
					newIdom = p
					continue
				}
				f1, f2 := p, newIdom
				for f1 != f2 {
					for rpo[f1] > rpo[f2] {
						f1 = t.idom[f1]
					}
					for rpo[f2] > rpo[f1] {
						f2 = t.idom[f2]
					}
				}
				newIdom = f1
			}
			if t.idom[b] != newIdom {
				t.idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range order[1:] {
		p := t.idom[b]
		t.children[p] = append(t.children[p], b)
	}
	t.number(entry, 0, 0)
	return t
}

func (t *DomTree) number(v BlockID, pre, post int32) (int32, int32) {
	t.pre[v] = pre
	pre++
	for _, c := range t.children[v] {
		pre, post = t.number(c, pre, post)
	}
	t.post[v] = post
	post++
	return pre, post
}

// Idom returns the immediate dominator of b; the entry has none
func (t *DomTree) Idom(b BlockID) BlockID {
	if !t.known(b) || t.idom[b] == b {
		return NoBlock
	}
	return t.idom[b]
}

// Children returns the blocks b immediately dominates
func (t *DomTree) Children(b BlockID) []BlockID {
	if !t.known(b) {
		return nil
	}
	return t.children[b]
}

// Dominates reports whether a dominates b. Every block dominates itself;
// unreachable blocks dominate and are dominated by nothing.
func (t *DomTree) Dominates(a, b BlockID) bool {
	if !t.known(a) || !t.known(b) {
		return false
	}
	return t.pre[a] <= t.pre[b] && t.post[b] <= t.post[a]
}

// InstrDominates reports whether a executes before b on every path reaching
// b. Within a block this is program order.
func (t *DomTree) InstrDominates(a, b Instruction) bool {
	ba, bb := a.Block(), b.Block()
	if ba == nil || bb == nil {
		return false
	}
	if ba != bb {
		return t.Dominates(ba.ID, bb.ID)
	}
	return ba.IndexOf(a) <= bb.IndexOf(b)
}

func (t *DomTree) known(b BlockID) bool {
	return b >= 0 && int(b) < len(t.reach) && t.reach[b]
}
