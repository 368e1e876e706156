package ir

import (
	"lazyjit/internal/errors"
)

// InsertAt places a detached instruction at position i of the block
func (b *BasicBlock) InsertAt(i int, ins Instruction) {
	errors.Assert(i >= 0 && i <= len(b.Instrs), errors.ErrorBadCursor,
		"%s: insert position %d out of range [0,%d]", b.ID, i, len(b.Instrs))
	errors.Assert(ins.Block() == nil, errors.ErrorBadCursor,
		"%s: %s is already placed in %s", b.ID, ins.Ref(), blockName(ins.Block()))
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[i+1:], b.Instrs[i:])
	b.Instrs[i] = ins
	ins.base().setBlock(b)
}

// InsertAfter places ins directly after pos, which must live in this block
func (b *BasicBlock) InsertAfter(pos, ins Instruction) {
	i := b.IndexOf(pos)
	errors.Assert(i >= 0, errors.ErrorBadCursor, "%s: %s is not in this block", b.ID, pos.Ref())
	b.InsertAt(i+1, ins)
}

// Append places a detached instruction at the end of the block
func (b *BasicBlock) Append(ins Instruction) {
	b.InsertAt(len(b.Instrs), ins)
}

// Remove detaches the instruction at position i and returns the cursor of
// the instruction that followed it
func (b *BasicBlock) Remove(i int) int {
	errors.Assert(i >= 0 && i < len(b.Instrs), errors.ErrorBadCursor,
		"%s: remove position %d out of range [0,%d)", b.ID, i, len(b.Instrs))
	ins := b.Instrs[i]
	copy(b.Instrs[i:], b.Instrs[i+1:])
	b.Instrs[len(b.Instrs)-1] = nil
	b.Instrs = b.Instrs[:len(b.Instrs)-1]
	ins.base().setBlock(nil)
	return i
}

// RemoveInstr detaches ins from its block
func RemoveInstr(ins Instruction) {
	b := ins.Block()
	errors.Assert(b != nil, errors.ErrorBadCursor, "%s is not placed in any block", ins.Ref())
	b.Remove(b.IndexOf(ins))
}

// SetOperand replaces operand i of ins
func SetOperand(ins Instruction, i int, v Value) {
	args := ins.base().args
	errors.Assert(i >= 0 && i < len(args), errors.ErrorBadCursor,
		"%s has no operand %d", ins.Ref(), i)
	args[i] = v
}

// SetNext0 sets the fast-path or fall-through successor
func (b *BasicBlock) SetNext0(id BlockID) {
	b.checkTarget(id)
	b.Next0 = id
}

// SetNext1 sets the second successor
func (b *BasicBlock) SetNext1(id BlockID) {
	b.checkTarget(id)
	b.Next1 = id
}

func (b *BasicBlock) checkTarget(id BlockID) {
	if id == NoBlock {
		return
	}
	errors.Assert(b.fn.Block(id) != nil, errors.ErrorDanglingEdge,
		"%s: successor %s does not exist", b.ID, id)
}

// SplitEdge splices a fresh empty block into the edge from -> to and
// returns it. Both successors are rewritten when they point at to.
func (fn *Function) SplitEdge(from *BasicBlock, to BlockID) *BasicBlock {
	errors.Assert(from.Next0 == to || from.Next1 == to, errors.ErrorDanglingEdge,
		"%s has no edge to %s", from.ID, to)
	mid := fn.NewBlock()
	mid.Next0 = to
	if from.Next0 == to {
		from.Next0 = mid.ID
	}
	if from.Next1 == to {
		from.Next1 = mid.ID
	}
	return mid
}

// ReplaceUsesWith rewrites every operand referring to old so that it refers
// to repl instead, and returns how many operands changed
func (fn *Function) ReplaceUsesWith(old, repl Value) int {
	n := 0
	for _, bb := range fn.blocks {
		if bb == nil {
			continue
		}
		for _, ins := range bb.Instrs {
			args := ins.base().args
			for i, a := range args {
				if a == old {
					args[i] = repl
					n++
				}
			}
		}
	}
	return n
}

// Users returns the instructions with an operand referring to v
func (fn *Function) Users(v Value) []Instruction {
	var out []Instruction
	for _, bb := range fn.blocks {
		if bb == nil {
			continue
		}
		for _, ins := range bb.Instrs {
			for _, a := range ins.Operands() {
				if a == v {
					out = append(out, ins)
					break
				}
			}
		}
	}
	return out
}

func blockName(b *BasicBlock) string {
	if b == nil {
		return "<detached>"
	}
	return b.ID.String()
}
