package analysis

import (
	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

// Mode decides how much an effectful instruction is assumed to disturb
type Mode uint8

const (
	// Conservative assumes any call may rewrite every variable of the
	// frame through reflection
	Conservative Mode = iota
	// NoReflection assumes callees never touch the caller's environment
	NoReflection
)

func (m Mode) String() string {
	if m == NoReflection {
		return "no-reflection"
	}
	return "conservative"
}

// FState is the abstract interpreter state over FValues
type FState = AbstractState[FValue]

// Dataflow abstractly interprets stack bytecode over FValues. Arguments
// start as Argument(i) and every other variable as bottom.
type Dataflow struct {
	Mode Mode
}

func (d Dataflow) Name() string { return "Dataflow" }

func (d Dataflow) Initial(fn *ir.Function) *FState {
	s := NewAbstractState[FValue]()
	for i, p := range fn.Params {
		s.Set(p, Argument(i))
	}
	return s
}

// doCall models an instruction that may run arbitrary user code
func (d Dataflow) doCall(s *FState) {
	if d.Mode == Conservative {
		s.MergeAllEnv(Any())
	}
}

func (d Dataflow) Transfer(s *FState, ins ir.Instruction) {
	op := ins.Op()
	switch op {
	case ir.OpCheckpoint, ir.OpAssume, ir.OpLabel, ir.OpDeopt:
		return
	}

	b, ok := ins.(*ir.Bytecode)
	errors.Assert(ok, errors.ErrorLatticeState, "%s is not a bytecode", ins)
	pool := b.Block().Function().Pool

	switch op {
	case ir.OpPush:
		s.Push(ConstantOf(b))

	case ir.OpLdFun:
		v := s.Get(symbolAt(pool, b.Imm))
		switch v.Kind() {
		case KindConstant:
			if v.Constant(pool).IsFunction() {
				s.Push(v)
				return
			}
			d.doCall(s)
			s.Push(ValueOf(b))
		case KindValue:
			s.Push(v)
		default:
			// the lookup may force promises while skipping non-functions
			d.doCall(s)
			s.Push(ValueOf(b))
		}

	case ir.OpLdVar, ir.OpLdDDVar, ir.OpLdArg:
		v := s.Get(symbolAt(pool, b.Imm))
		if !v.Pure() {
			d.doCall(s)
		}
		switch {
		case v.IsBottom():
			s.Push(ValueOf(b))
		case v.Pure():
			s.Push(v)
		default:
			s.Push(ValueOf(b))
		}

	case ir.OpForce:
		v := s.Pop()
		if v.Pure() {
			s.Push(v)
			return
		}
		d.doCall(s)
		s.Push(ValueOf(b))

	case ir.OpStVar:
		s.Set(symbolAt(pool, b.Imm), s.Pop())

	case ir.OpCall, ir.OpDispatch:
		s.Pop()
		d.doCall(s)
		s.Push(Any())

	case ir.OpDispatchStack:
		s.PopN(b.Imm)
		d.doCall(s)
		s.Push(Any())

	case ir.OpCallStack:
		d.popArgs(s, b.Imm)
		fun := s.Pop()
		safe := fun.Kind() == KindConstant && safeBuiltin(fun.Constant(pool))
		d.callResult(s, b, safe)

	case ir.OpStaticCallStack:
		d.popArgs(s, b.Imm)
		d.callResult(s, b, safeBuiltin(pool.Get(b.Imm2)))

	case ir.OpGuardFun:
		d.doCall(s)
		s.Set(symbolAt(pool, b.Imm), ConstantOf(b))

	case ir.OpSwap:
		x, y := s.Pop(), s.Pop()
		x.MarkUsed(b)
		y.MarkUsed(b)
		s.Push(x)
		s.Push(y)

	case ir.OpPull:
		v := d.touch(s, b.Imm, b)
		s.Push(v)

	case ir.OpPut:
		v := d.touch(s, 0, b)
		for i := 0; i < b.Imm; i++ {
			s.SetPeek(i, s.Peek(i+1))
		}
		s.SetPeek(b.Imm, v)

	case ir.OpPick:
		v := d.touch(s, b.Imm, b)
		for i := b.Imm; i > 0; i-- {
			s.SetPeek(i, s.Peek(i-1))
		}
		s.SetPeek(0, v)

	case ir.OpDup:
		s.Push(d.touch(s, 0, b))

	case ir.OpDup2:
		x := d.touch(s, 1, b)
		y := d.touch(s, 0, b)
		s.Push(x)
		s.Push(y)

	case ir.OpUniq, ir.OpBrObj:
		d.touch(s, 0, b)

	case ir.OpPop, ir.OpBranch:
		s.Pop()

	case ir.OpReturn:
		s.PopN(s.Depth())

	case ir.OpAlloc, ir.OpInc, ir.OpIs, ir.OpIsFun, ir.OpExtract1, ir.OpSubset1,
		ir.OpExtract2, ir.OpSubset2, ir.OpClose, ir.OpLglOr, ir.OpLglAnd,
		ir.OpTestBounds, ir.OpSeq, ir.OpNames, ir.OpLength, ir.OpAdd, ir.OpSub,
		ir.OpMul, ir.OpLt, ir.OpEq, ir.OpNot, ir.OpAsBool:
		s.PopN(b.PopCount())
		if !b.Pure() {
			d.doCall(s)
		}
		for i := 0; i < b.PushCount(); i++ {
			if op.ProducesEvaluated() {
				s.Push(ValueOf(b))
			} else {
				s.Push(Any())
			}
		}

	default:
		errors.Violationf(errors.ErrorLatticeState, "no transfer for opcode %s", op)
	}
}

// popArgs pops the arguments of a stack call. Arguments that may still be
// promises can be forced by the callee.
func (d Dataflow) popArgs(s *FState, n int) {
	forces := false
	for i := 0; i < n; i++ {
		if !s.Pop().IsValue() {
			forces = true
		}
	}
	if forces {
		d.doCall(s)
	}
}

func (d Dataflow) callResult(s *FState, b *ir.Bytecode, safe bool) {
	if !safe {
		d.doCall(s)
		s.Push(Any())
		return
	}
	s.Push(ValueOf(b))
}

// touch marks stack slot i as used by ins and returns it
func (d Dataflow) touch(s *FState, i int, ins ir.Instruction) FValue {
	v := s.Peek(i)
	v.MarkUsed(ins)
	s.SetPeek(i, v)
	return v
}

func safeBuiltin(c ir.Const) bool {
	return c.IsPrimitive() && c.Safe
}

func symbolAt(pool *ir.Pool, i int) ir.Symbol {
	sym, ok := pool.SymbolAt(i)
	errors.Assert(ok, errors.ErrorLatticeState, "pool entry %d is not a symbol", i)
	return sym
}
