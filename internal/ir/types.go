package ir

import (
	"fmt"
)

// Value is anything an instruction operand can refer to: another
// instruction, or a literal that is not itself an instruction.
type Value interface {
	Ref() string
}

// Literal is a raw constant operand
type Literal struct {
	Const Const
}

func (l *Literal) Ref() string { return l.Const.String() }

// Instruction is the closed set of IR instructions. Every implementation is
// defined in this package; consumers dispatch on Op().
type Instruction interface {
	Value
	ID() int
	Op() Opcode
	Block() *BasicBlock
	Operands() []Value
	PopCount() int
	PushCount() int
	Pure() bool
	String() string

	base() *instrBase
}

type instrBase struct {
	id    int
	op    Opcode
	block *BasicBlock
	args  []Value
}

func (i *instrBase) ID() int               { return i.id }
func (i *instrBase) Op() Opcode            { return i.op }
func (i *instrBase) Block() *BasicBlock    { return i.block }
func (i *instrBase) Operands() []Value     { return i.args }
func (i *instrBase) Ref() string           { return fmt.Sprintf("%%%d", i.id) }
func (i *instrBase) base() *instrBase      { return i }
func (i *instrBase) PushCount() int        { return opTable[i.op].push }
func (i *instrBase) Pure() bool            { return opTable[i.op].pure }
func (i *instrBase) setBlock(b *BasicBlock) { i.block = b }

// Bytecode is a stack instruction. Imm and Imm2 carry the immediates:
// a pool index for loads, stores, pushes and guards, an argument count for
// calls, or a stack offset for pull/put/pick.
type Bytecode struct {
	instrBase
	Imm  int
	Imm2 int
}

// PopCount returns the number of operand stack slots consumed. Call-like
// opcodes pop a count given by their immediate; return pops PopAll.
func (b *Bytecode) PopCount() int {
	switch b.op {
	case OpCallStack:
		return b.Imm + 1
	case OpStaticCallStack, OpDispatchStack:
		return b.Imm
	}
	return opTable[b.op].pop
}

func (b *Bytecode) String() string {
	return render(b, b.pool(), Value.Ref)
}

func (b *Bytecode) pool() *Pool {
	if b.block == nil || b.block.fn == nil {
		return nil
	}
	return b.block.fn.Pool
}

// Checkpoint marks a state to fall back to when a speculation fails. It is
// always the last instruction of a branching block: Next0 continues on the
// fast path and Next1 is the deoptimization block.
type Checkpoint struct {
	instrBase
}

func (c *Checkpoint) PopCount() int { return 0 }

// NextBB returns the fast-path successor
func (c *Checkpoint) NextBB() BlockID {
	if c.block == nil {
		return NoBlock
	}
	return c.block.Next0
}

// DeoptBB returns the deoptimization successor
func (c *Checkpoint) DeoptBB() BlockID {
	if c.block == nil {
		return NoBlock
	}
	return c.block.Next1
}

func (c *Checkpoint) String() string {
	return fmt.Sprintf("checkpoint -> %s, %s", c.NextBB(), c.DeoptBB())
}

// Assume guards that its condition has the expected truth value. When the
// guard fails control transfers to the deopt block of its checkpoint.
type Assume struct {
	instrBase
	AssumeTrue bool
}

func (a *Assume) PopCount() int { return 0 }

// Condition returns the guarded value
func (a *Assume) Condition() Value { return a.args[0] }

// Checkpoint returns the checkpoint the guard falls back to
func (a *Assume) Checkpoint() *Checkpoint {
	cp, _ := a.args[1].(*Checkpoint)
	return cp
}

// SetCheckpoint rebinds the guard to another checkpoint
func (a *Assume) SetCheckpoint(cp *Checkpoint) {
	if cp == nil {
		a.args[1] = nil
		return
	}
	a.args[1] = cp
}

func (a *Assume) String() string {
	return render(a, nil, Value.Ref)
}

// AsInstruction returns v as an instruction when it is one
func AsInstruction(v Value) (Instruction, bool) {
	ins, ok := v.(Instruction)
	return ins, ok
}
