// Package ir is the graph IR the middle-end operates on.
//
// A Function is a control-flow graph of basic blocks kept in an arena and
// addressed by BlockID; successor edges are ids rather than pointers, so
// back-edges need no special ownership. Blocks hold stack bytecode plus the
// two speculation primitives, Checkpoint and Assume.
package ir

import "fmt"

// BlockID addresses a block in its function's arena
type BlockID int

// NoBlock marks an absent successor
const NoBlock BlockID = -1

func (id BlockID) String() string {
	if id == NoBlock {
		return "<none>"
	}
	return fmt.Sprintf("bb%d", int(id))
}

// Symbol is a variable or function name as interned in the constant pool
type Symbol string

// Function is a closure version being compiled
type Function struct {
	Name   string
	Params []Symbol
	Pool   *Pool
	Entry  BlockID

	blocks      []*BasicBlock
	nextInstrID int
}

// NewFunction creates a function with an empty entry block
func NewFunction(name string, params ...Symbol) *Function {
	fn := &Function{
		Name:   name,
		Params: params,
		Pool:   NewPool(),
	}
	for _, p := range params {
		fn.Pool.Symbol(p)
	}
	fn.Entry = fn.NewBlock().ID
	return fn
}

// NewBlock allocates a fresh block with no successors
func (fn *Function) NewBlock() *BasicBlock {
	bb := &BasicBlock{
		ID:    BlockID(len(fn.blocks)),
		Next0: NoBlock,
		Next1: NoBlock,
		fn:    fn,
	}
	fn.blocks = append(fn.blocks, bb)
	return bb
}

// NextBlockID is the id the next NewBlock call will hand out
func (fn *Function) NextBlockID() BlockID {
	return BlockID(len(fn.blocks))
}

// Block returns the block with the given id, or nil when it was deleted
func (fn *Function) Block(id BlockID) *BasicBlock {
	if id < 0 || int(id) >= len(fn.blocks) {
		return nil
	}
	return fn.blocks[id]
}

// EntryBlock returns the entry block
func (fn *Function) EntryBlock() *BasicBlock {
	return fn.Block(fn.Entry)
}

// Blocks returns the live blocks in id order
func (fn *Function) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, 0, len(fn.blocks))
	for _, bb := range fn.blocks {
		if bb != nil {
			out = append(out, bb)
		}
	}
	return out
}

// NumBlockIDs is the size of the block arena, including deleted slots
func (fn *Function) NumBlockIDs() int {
	return len(fn.blocks)
}

func (fn *Function) newInstrID() int {
	id := fn.nextInstrID
	fn.nextInstrID++
	return id
}

// BasicBlock is an ordered instruction sequence with up to two successors.
// A block with both successors ends in a Checkpoint or a branch; a block
// with only Next0 falls through; a block with neither is an exit.
type BasicBlock struct {
	ID     BlockID
	Instrs []Instruction
	Next0  BlockID
	Next1  BlockID

	fn *Function
}

// Function returns the function owning the block
func (b *BasicBlock) Function() *Function { return b.fn }

// IsBranch reports whether the block has two successors
func (b *BasicBlock) IsBranch() bool {
	return b.Next0 != NoBlock && b.Next1 != NoBlock
}

// IsJump reports whether the block falls through to a single successor
func (b *BasicBlock) IsJump() bool {
	return b.Next0 != NoBlock && b.Next1 == NoBlock
}

// IsExit reports whether the block has no successors
func (b *BasicBlock) IsExit() bool {
	return b.Next0 == NoBlock && b.Next1 == NoBlock
}

// Empty reports whether the block holds no instructions
func (b *BasicBlock) Empty() bool { return len(b.Instrs) == 0 }

// Last returns the final instruction, or nil for an empty block
func (b *BasicBlock) Last() Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[len(b.Instrs)-1]
}

// Successors returns the present successor ids, fast path first
func (b *BasicBlock) Successors() []BlockID {
	var out []BlockID
	if b.Next0 != NoBlock {
		out = append(out, b.Next0)
	}
	if b.Next1 != NoBlock {
		out = append(out, b.Next1)
	}
	return out
}

// IndexOf returns the position of ins in the block, or -1
func (b *BasicBlock) IndexOf(ins Instruction) int {
	for i, x := range b.Instrs {
		if x == ins {
			return i
		}
	}
	return -1
}
