package parser

import (
	"fmt"
	"strings"

	ierrors "lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

// lowerer turns one FuncDecl into an ir.Function. Values may be referenced
// before their definition, so instructions are created first and their
// operands resolved in a second walk.
type lowerer struct {
	file   string
	fn     *ir.Function
	blocks map[string]*ir.BasicBlock
	values map[string]ir.Instruction
	errs   Errors
}

type pendingLine struct {
	line     *Line
	bb       *ir.BasicBlock
	ins      ir.Instruction // nil for goto
	operands []*Arg
}

func lowerFunction(file string, decl *FuncDecl) (*ir.Function, Errors) {
	params := make([]ir.Symbol, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = ir.Symbol(p)
	}
	l := &lowerer{
		file:   file,
		fn:     ir.NewFunction(decl.Name, params...),
		blocks: make(map[string]*ir.BasicBlock),
		values: make(map[string]ir.Instruction),
	}

	owners := make([]*ir.BasicBlock, len(decl.Blocks))
	for i, bd := range decl.Blocks {
		label := strings.TrimSuffix(bd.Label, ":")
		if _, dup := l.blocks[label]; dup {
			l.errorf(ierrors.DuplicateDefinition(label, l.pos(bd.Pos.Line, bd.Pos.Column)))
			continue
		}
		bb := l.fn.EntryBlock()
		if i > 0 {
			bb = l.fn.NewBlock()
		}
		l.blocks[label] = bb
		owners[i] = bb
	}

	var pending []pendingLine
	for i, bd := range decl.Blocks {
		if owners[i] == nil {
			continue
		}
		for _, line := range bd.Lines {
			if p, ok := l.define(owners[i], line); ok {
				pending = append(pending, p)
			}
		}
	}
	for _, p := range pending {
		l.place(p)
	}

	if len(l.errs) > 0 {
		return nil, l.errs
	}
	return l.fn, nil
}

func (l *lowerer) errorf(err ierrors.CompilerError) {
	l.errs = append(l.errs, err)
}

func (l *lowerer) pos(line, column int) ierrors.Position {
	return position(l.file, line, column)
}

func (l *lowerer) linePos(line *Line) ierrors.Position {
	return l.pos(line.Pos.Line, line.Pos.Column)
}

// define creates the instruction for line with its immediates decoded
func (l *lowerer) define(bb *ir.BasicBlock, line *Line) (pendingLine, bool) {
	p := pendingLine{line: line, bb: bb}
	if line.Op == "goto" {
		if line.Result != "" || len(line.Args) > 0 {
			l.errorf(ierrors.BadOperand("goto", "goto takes no operands", l.linePos(line)))
			return p, false
		}
		return p, true
	}

	op, ok := ir.LookupOpcode(line.Op)
	if !ok {
		l.errorf(ierrors.UnknownOpcode(line.Op, l.linePos(line), similarOpcodes(line.Op)))
		return p, false
	}

	ins, operands, ok := l.create(op, line)
	if !ok {
		return p, false
	}
	p.ins, p.operands = ins, operands

	if line.Result != "" {
		if _, dup := l.values[line.Result]; dup {
			l.errorf(ierrors.DuplicateDefinition(line.Result, l.linePos(line)))
			return p, false
		}
		l.values[line.Result] = ins
	}
	return p, true
}

func (l *lowerer) create(op ir.Opcode, line *Line) (ir.Instruction, []*Arg, bool) {
	args := line.Args
	bad := func(detail string) (ir.Instruction, []*Arg, bool) {
		l.errorf(ierrors.BadOperand(op.String(), detail, l.linePos(line)))
		return nil, nil, false
	}
	for i, a := range args {
		if a.Not && (op != ir.OpAssume || i != 0) {
			return bad("only an assume condition may be negated")
		}
	}

	switch {
	case op == ir.OpCheckpoint:
		if len(args) > 0 {
			return bad("checkpoint takes no operands")
		}
		return l.fn.NewCheckpoint(), nil, true

	case op == ir.OpAssume:
		if len(args) != 2 {
			return bad("expected a condition and a checkpoint")
		}
		return l.fn.NewAssume(nil, nil, !args[0].Not), args, true

	case op == ir.OpGuardFun:
		if len(args) < 2 || args[0].Atom.Symbol == "" || args[1].Atom.Func == nil {
			return bad("expected a symbol and a function constant")
		}
		target, ok := l.funcConst(op, line, args[1].Atom.Func)
		if !ok {
			return nil, nil, false
		}
		sym := l.fn.Pool.Symbol(ir.Symbol(args[0].Atom.Symbol))
		return l.bytecode(op, sym, l.fn.Pool.Insert(target), args[2:])

	case op == ir.OpStaticCallStack:
		if len(args) < 2 || args[0].Atom.Int == nil || args[1].Atom.Func == nil {
			return bad("expected an argument count and a function constant")
		}
		target, ok := l.funcConst(op, line, args[1].Atom.Func)
		if !ok {
			return nil, nil, false
		}
		return l.bytecode(op, *args[0].Atom.Int, l.fn.Pool.Insert(target), args[2:])

	case op == ir.OpPush:
		if len(args) < 1 {
			return bad("expected a constant")
		}
		c, ok := l.constOf(op, line, args[0])
		if !ok {
			return nil, nil, false
		}
		return l.bytecode(op, l.fn.Pool.Insert(c), 0, args[1:])

	case op.UsesPool():
		if len(args) < 1 || args[0].Atom.Symbol == "" {
			return bad("expected a symbol")
		}
		return l.bytecode(op, l.fn.Pool.Symbol(ir.Symbol(args[0].Atom.Symbol)), 0, args[1:])

	case op.UsesCount():
		if len(args) < 1 || args[0].Atom.Int == nil {
			return bad("expected a count")
		}
		return l.bytecode(op, *args[0].Atom.Int, 0, args[1:])
	}
	return l.bytecode(op, 0, 0, args)
}

func (l *lowerer) bytecode(op ir.Opcode, imm, imm2 int, operands []*Arg) (ir.Instruction, []*Arg, bool) {
	placeholders := make([]ir.Value, len(operands))
	return l.fn.NewBytecode(op, imm, imm2, placeholders...), operands, true
}

// place resolves operands and successors and appends the instruction
func (l *lowerer) place(p pendingLine) {
	line := p.line
	if p.ins == nil {
		if len(line.Targets) != 1 {
			l.errorf(ierrors.BadOperand("goto", "expected exactly one target", l.linePos(line)))
			return
		}
		if t, ok := l.target(line, line.Targets[0]); ok {
			p.bb.Next0 = t
			p.bb.Next1 = ir.NoBlock
		}
		return
	}

	for i, a := range p.operands {
		v, ok := l.operand(a)
		if !ok {
			return
		}
		ir.SetOperand(p.ins, i, v)
	}
	if a, ok := p.ins.(*ir.Assume); ok {
		if _, isCp := a.Operands()[1].(*ir.Checkpoint); !isCp {
			l.errorf(ierrors.BadOperand("assume", "second operand must be a checkpoint", l.linePos(line)))
			return
		}
	}

	want := 0
	if op := p.ins.Op(); op == ir.OpCheckpoint || op == ir.OpBranch {
		want = 2
	}
	if len(line.Targets) != want {
		l.errorf(ierrors.BadOperand(p.ins.Op().String(),
			fmt.Sprintf("expected %d successor(s), got %d", want, len(line.Targets)), l.linePos(line)))
		return
	}
	p.bb.Append(p.ins)
	if want == 2 {
		t0, ok0 := l.target(line, line.Targets[0])
		t1, ok1 := l.target(line, line.Targets[1])
		if ok0 && ok1 {
			p.bb.Next0, p.bb.Next1 = t0, t1
		}
	}
}

func (l *lowerer) target(line *Line, label string) (ir.BlockID, bool) {
	bb, ok := l.blocks[label]
	if !ok {
		l.errorf(ierrors.UndefinedBlock(label, l.linePos(line)))
		return ir.NoBlock, false
	}
	return bb.ID, true
}

func (l *lowerer) operand(a *Arg) (ir.Value, bool) {
	if a.Atom.Value != "" {
		ins, ok := l.values[a.Atom.Value]
		if !ok {
			l.errorf(ierrors.UndefinedValue(a.Atom.Value, l.pos(a.Pos.Line, a.Pos.Column)))
			return nil, false
		}
		return ins, true
	}
	c, ok := l.constOf(ir.OpPush, nil, a)
	if !ok {
		return nil, false
	}
	return &ir.Literal{Const: c}, true
}

func (l *lowerer) constOf(op ir.Opcode, line *Line, a *Arg) (ir.Const, bool) {
	switch v := a.Atom; {
	case v.Func != nil:
		return l.funcConst(op, line, v.Func)
	case v.Float != nil:
		return ir.Const{Kind: ir.KindNumber, Value: *v.Float}, true
	case v.Int != nil:
		return ir.Const{Kind: ir.KindNumber, Value: *v.Int}, true
	case v.String != nil:
		return ir.Const{Kind: ir.KindString, Value: *v.String}, true
	case v.True:
		return ir.Const{Kind: ir.KindLogical, Value: true}, true
	case v.False:
		return ir.Const{Kind: ir.KindLogical, Value: false}, true
	case v.Null:
		return ir.Const{Kind: ir.KindNull}, true
	case v.Symbol != "":
		return ir.Const{Kind: ir.KindSymbol, Name: v.Symbol}, true
	}
	l.errorf(ierrors.BadOperand(op.String(), "expected a constant", l.pos(a.Pos.Line, a.Pos.Column)))
	return ir.Const{}, false
}

func (l *lowerer) funcConst(op ir.Opcode, line *Line, f *FuncRef) (ir.Const, bool) {
	switch f.Kind {
	case "builtin":
		return ir.Const{Kind: ir.KindBuiltin, Name: f.Name}, true
	case "safe":
		return ir.Const{Kind: ir.KindBuiltin, Name: f.Name, Safe: true}, true
	case "special":
		return ir.Const{Kind: ir.KindSpecial, Name: f.Name}, true
	case "closure":
		return ir.Const{Kind: ir.KindClosure, Name: f.Name}, true
	}
	pos := ierrors.Position{Filename: l.file}
	if line != nil {
		pos = l.linePos(line)
	}
	l.errorf(ierrors.BadOperand(op.String(), fmt.Sprintf("unknown function kind @%s", f.Kind), pos))
	return ir.Const{}, false
}
