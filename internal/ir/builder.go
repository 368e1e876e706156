package ir

import (
	"lazyjit/internal/errors"
)

// Builder appends instructions to a function block by block
type Builder struct {
	fn  *Function
	cur *BasicBlock
}

// NewBuilder creates a builder positioned at the end of fn's entry block
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn, cur: fn.EntryBlock()}
}

// Function returns the function under construction
func (b *Builder) Function() *Function { return b.fn }

// Block returns the current insertion block
func (b *Builder) Block() *BasicBlock { return b.cur }

// CreateBlock allocates a new block without moving the insertion point
func (b *Builder) CreateBlock() *BasicBlock { return b.fn.NewBlock() }

// SetBlock moves the insertion point to the end of bb
func (b *Builder) SetBlock(bb *BasicBlock) { b.cur = bb }

func (b *Builder) add(ins Instruction) {
	if last := b.cur.Last(); last != nil {
		errors.Assert(!last.Op().IsTerminator(), errors.ErrorMisplacedTerminator,
			"%s: cannot append %s after terminator %s", b.cur.ID, ins.Op(), last.Op())
	}
	ins.base().block = b.cur
	b.cur.Instrs = append(b.cur.Instrs, ins)
}

// Emit appends a bytecode with explicit immediates and operand references
func (b *Builder) Emit(op Opcode, imm, imm2 int, args ...Value) *Bytecode {
	ins := b.fn.NewBytecode(op, imm, imm2, args...)
	b.add(ins)
	return ins
}

// Op appends a bytecode without immediates
func (b *Builder) Op(op Opcode, args ...Value) *Bytecode {
	return b.Emit(op, 0, 0, args...)
}

// Count appends a bytecode whose immediate is a count or stack offset
func (b *Builder) Count(op Opcode, n int, args ...Value) *Bytecode {
	return b.Emit(op, n, 0, args...)
}

// Push appends a push of c
func (b *Builder) Push(c Const) *Bytecode {
	return b.Emit(OpPush, b.fn.Pool.Insert(c), 0)
}

// Load appends a variable or function load of s
func (b *Builder) Load(op Opcode, s Symbol) *Bytecode {
	return b.Emit(op, b.fn.Pool.Symbol(s), 0)
}

// LdVar appends ldvar s
func (b *Builder) LdVar(s Symbol) *Bytecode { return b.Load(OpLdVar, s) }

// LdFun appends ldfun s
func (b *Builder) LdFun(s Symbol) *Bytecode { return b.Load(OpLdFun, s) }

// StVar appends stvar s
func (b *Builder) StVar(s Symbol) *Bytecode { return b.Load(OpStVar, s) }

// GuardFun appends a guard that s is bound to the function expected
func (b *Builder) GuardFun(s Symbol, expected Const) *Bytecode {
	return b.Emit(OpGuardFun, b.fn.Pool.Symbol(s), b.fn.Pool.Insert(expected))
}

// StaticCallStack appends a call of a statically known target
func (b *Builder) StaticCallStack(nargs int, target Const) *Bytecode {
	return b.Emit(OpStaticCallStack, nargs, b.fn.Pool.Insert(target))
}

// Checkpoint ends the current block with a checkpoint
func (b *Builder) Checkpoint(next, deopt BlockID) *Checkpoint {
	cp := b.fn.NewCheckpoint()
	b.add(cp)
	b.cur.Next0 = next
	b.cur.Next1 = deopt
	return cp
}

// Assume appends a guard on cond bound to cp
func (b *Builder) Assume(cond Value, cp *Checkpoint, assumeTrue bool) *Assume {
	a := b.fn.NewAssume(cond, cp, assumeTrue)
	b.add(a)
	return a
}

// Branch ends the current block with a conditional branch
func (b *Builder) Branch(t, f BlockID, args ...Value) *Bytecode {
	br := b.Op(OpBranch, args...)
	b.cur.Next0 = t
	b.cur.Next1 = f
	return br
}

// Goto makes the current block fall through to target
func (b *Builder) Goto(target BlockID) {
	b.cur.Next0 = target
	b.cur.Next1 = NoBlock
}

// Return ends the current block with a return
func (b *Builder) Return() *Bytecode { return b.Op(OpReturn) }

// Deopt ends the current block with a deoptimization exit
func (b *Builder) Deopt() *Bytecode { return b.Op(OpDeopt) }

// NewBytecode creates a detached bytecode; insert it with InsertAt
func (fn *Function) NewBytecode(op Opcode, imm, imm2 int, args ...Value) *Bytecode {
	return &Bytecode{
		instrBase: instrBase{id: fn.newInstrID(), op: op, args: args},
		Imm:       imm,
		Imm2:      imm2,
	}
}

// NewCheckpoint creates a detached checkpoint
func (fn *Function) NewCheckpoint() *Checkpoint {
	return &Checkpoint{instrBase: instrBase{id: fn.newInstrID(), op: OpCheckpoint}}
}

// NewAssume creates a detached assume
func (fn *Function) NewAssume(cond Value, cp *Checkpoint, assumeTrue bool) *Assume {
	a := &Assume{
		instrBase:  instrBase{id: fn.newInstrID(), op: OpAssume, args: []Value{cond, nil}},
		AssumeTrue: assumeTrue,
	}
	a.SetCheckpoint(cp)
	return a
}
