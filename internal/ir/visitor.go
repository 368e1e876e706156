package ir

// Visit calls fn once for every block reachable from the entry, depth
// first with fast-path successors before deopt successors. Successors are
// read before fn runs.
func Visit(f *Function, fn func(*BasicBlock)) {
	visit(f, fn, false)
}

// VisitPostChange is Visit but reads a block's successors after fn returns,
// so blocks spliced in by fn are visited too
func VisitPostChange(f *Function, fn func(*BasicBlock)) {
	visit(f, fn, true)
}

func visit(f *Function, fn func(*BasicBlock), post bool) {
	seen := make(map[BlockID]bool)
	stack := []BlockID{f.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		bb := f.Block(id)
		if bb == nil {
			continue
		}
		seen[id] = true

		var succs []BlockID
		if !post {
			succs = bb.Successors()
		}
		fn(bb)
		if post {
			if f.Block(id) == nil {
				continue
			}
			succs = bb.Successors()
		}
		for i := len(succs) - 1; i >= 0; i-- {
			if !seen[succs[i]] {
				stack = append(stack, succs[i])
			}
		}
	}
}

// Instructions calls fn for every instruction of every reachable block, in
// Visit order
func Instructions(f *Function, fn func(Instruction)) {
	Visit(f, func(bb *BasicBlock) {
		for _, ins := range bb.Instrs {
			fn(ins)
		}
	})
}
