package ir

// Preds holds the predecessor lists of a function's reachable blocks,
// indexed by BlockID. Lists are in ascending block id order.
type Preds [][]BlockID

// Of returns the predecessors of id
func (p Preds) Of(id BlockID) []BlockID {
	if id < 0 || int(id) >= len(p) {
		return nil
	}
	return p[id]
}

// IsMerge reports whether id has at least two predecessors
func (p Preds) IsMerge(id BlockID) bool {
	return len(p.Of(id)) >= 2
}

// Predecessors computes the predecessor lists over reachable blocks. An
// edge counts once per distinct source block.
func Predecessors(fn *Function) Preds {
	reach := Reachable(fn)
	preds := make(Preds, fn.NumBlockIDs())
	for _, bb := range fn.blocks {
		if bb == nil || !reach[bb.ID] {
			continue
		}
		for i, s := range bb.Successors() {
			if i == 1 && s == bb.Next0 {
				continue
			}
			if int(s) < len(preds) {
				preds[s] = append(preds[s], bb.ID)
			}
		}
	}
	return preds
}

// IsMergeBlock reports whether id has at least two reachable predecessors
func (fn *Function) IsMergeBlock(id BlockID) bool {
	return Predecessors(fn).IsMerge(id)
}

// Reachable marks the blocks reachable from the entry, indexed by BlockID
func Reachable(fn *Function) []bool {
	reach := make([]bool, fn.NumBlockIDs())
	markReachable(fn, fn.Entry, reach)
	return reach
}

func markReachable(fn *Function, id BlockID, reach []bool) {
	bb := fn.Block(id)
	if bb == nil || reach[id] {
		return
	}
	reach[id] = true
	for _, s := range bb.Successors() {
		markReachable(fn, s, reach)
	}
}

// ReversePostorder lists the reachable blocks in reverse postorder, fast
// path successors first
func ReversePostorder(fn *Function) []BlockID {
	seen := make([]bool, fn.NumBlockIDs())
	var post []BlockID
	var walk func(id BlockID)
	walk = func(id BlockID) {
		bb := fn.Block(id)
		if bb == nil || seen[id] {
			return
		}
		seen[id] = true
		for _, s := range bb.Successors() {
			walk(s)
		}
		post = append(post, id)
	}
	walk(fn.Entry)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// RemoveBlock deletes a block from the arena, detaches its instructions
// and severs every edge that pointed at it
func (fn *Function) RemoveBlock(id BlockID) {
	bb := fn.Block(id)
	if bb == nil {
		return
	}
	for _, ins := range bb.Instrs {
		ins.base().setBlock(nil)
	}
	bb.Instrs = nil
	fn.blocks[id] = nil
	for _, other := range fn.blocks {
		if other == nil {
			continue
		}
		if other.Next0 == id {
			other.Next0 = NoBlock
		}
		if other.Next1 == id {
			other.Next1 = NoBlock
		}
	}
}

// PruneUnreachable removes every block not reachable from the entry and
// returns how many were removed
func PruneUnreachable(fn *Function) int {
	reach := Reachable(fn)
	removed := 0
	for _, bb := range fn.blocks {
		if bb != nil && !reach[bb.ID] {
			fn.RemoveBlock(bb.ID)
			removed++
		}
	}
	return removed
}
