package analysis

import (
	"fmt"

	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

// Kind is the provenance class of an FValue
type Kind uint8

const (
	// KindBottom is a value nothing has flowed into yet
	KindBottom Kind = iota
	// KindConstant is a literal or a function guarded by guard_fun
	KindConstant
	// KindArgument is the unevaluated i-th formal argument
	KindArgument
	// KindValue is an evaluated value without observable side effects
	KindValue
	// KindAny may be anything, including a promise
	KindAny
)

var fkindNames = [...]string{
	KindBottom:   "bottom",
	KindConstant: "constant",
	KindArgument: "argument",
	KindValue:    "value",
	KindAny:      "any",
}

func (k Kind) String() string {
	if int(k) < len(fkindNames) {
		return fkindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

type refKind uint8

const (
	refUnused refKind = iota
	refInstr
	refMulti
)

// Ref names one instruction, no instruction, or several. It is a flat
// lattice: unused < instr(i) < multi.
type Ref struct {
	kind refKind
	ins  ir.Instruction
}

// RefTo returns the reference to a single instruction
func RefTo(ins ir.Instruction) Ref { return Ref{kind: refInstr, ins: ins} }

// Multi is the reference to more than one instruction
var Multi = Ref{kind: refMulti}

func (r Ref) IsUnused() bool { return r.kind == refUnused }
func (r Ref) IsMulti() bool  { return r.kind == refMulti }

// Instr returns the single referenced instruction
func (r Ref) Instr() (ir.Instruction, bool) {
	if r.kind != refInstr {
		return nil, false
	}
	return r.ins, true
}

func (r Ref) join(o Ref) (Ref, bool) {
	switch {
	case o.kind == refUnused || r == o || r.kind == refMulti:
		return r, false
	case r.kind == refUnused:
		return o, true
	}
	return Multi, true
}

func (r Ref) String() string {
	switch r.kind {
	case refInstr:
		return r.ins.Ref()
	case refMulti:
		return "*"
	}
	return "-"
}

// UseDef records which instruction defined a value and which single
// instruction consumed it
type UseDef struct {
	Def Ref
	Use Ref
}

func (u UseDef) join(o UseDef) (UseDef, bool) {
	def, c1 := u.Def.join(o.Def)
	use, c2 := u.Use.join(o.Use)
	return UseDef{Def: def, Use: use}, c1 || c2
}

// FValue is the abstract value of a stack slot or variable. It tracks
// where a value came from and whether reading it can run user code.
//
// The zero FValue is bottom.
type FValue struct {
	kind Kind
	arg  int
	ud   UseDef
}

func Bottom() FValue { return FValue{} }

func Any() FValue { return FValue{kind: KindAny} }

// Argument is the still unevaluated formal argument i
func Argument(i int) FValue { return FValue{kind: KindArgument, arg: i} }

// ConstantOf is the constant defined by def, a push or a guard_fun
func ConstantOf(def ir.Instruction) FValue {
	return FValue{kind: KindConstant, ud: UseDef{Def: RefTo(def)}}
}

// ValueOf is an evaluated value produced by def
func ValueOf(def ir.Instruction) FValue {
	return FValue{kind: KindValue, ud: UseDef{Def: RefTo(def)}}
}

func (v FValue) Kind() Kind { return v.kind }

func (v FValue) IsBottom() bool { return v.kind == KindBottom }

// Pure reports whether reading the value can never run user code
func (v FValue) Pure() bool {
	return v.kind != KindArgument && v.kind != KindAny
}

// IsValue reports whether the value is known to be evaluated
func (v FValue) IsValue() bool {
	return v.kind == KindConstant || v.kind == KindValue
}

// Arg returns the argument index of an Argument
func (v FValue) Arg() int {
	errors.Assert(v.kind == KindArgument, errors.ErrorLatticeState, "Arg() on a %s value", v.kind)
	return v.arg
}

// SingleDef reports whether exactly one instruction defines the value
func (v FValue) SingleDef() bool {
	return v.IsValue() && v.ud.Def.kind == refInstr
}

// Def returns the single defining instruction
func (v FValue) Def() ir.Instruction {
	errors.Assert(v.SingleDef(), errors.ErrorLatticeState, "Def() on a %s value without a single definition", v.kind)
	return v.ud.Def.ins
}

// Used returns the use record of an evaluated value
func (v FValue) Used() Ref {
	errors.Assert(v.IsValue(), errors.ErrorLatticeState, "Used() on a %s value", v.kind)
	return v.ud.Use
}

// UseDef returns the raw use/def record
func (v FValue) UseDef() UseDef { return v.ud }

// MarkUsed records ins as a consumer. A second distinct consumer makes the
// use record Multi.
func (v *FValue) MarkUsed(ins ir.Instruction) {
	if !v.IsValue() {
		return
	}
	v.ud.Use, _ = v.ud.Use.join(RefTo(ins))
}

// Constant resolves a Constant to its pool entry: the pushed literal, or
// the function a guard_fun guarantees.
func (v FValue) Constant(pool *ir.Pool) ir.Const {
	errors.Assert(v.kind == KindConstant, errors.ErrorLatticeState, "Constant() on a %s value", v.kind)
	def, ok := v.Def().(*ir.Bytecode)
	if ok {
		switch def.Op() {
		case ir.OpPush:
			return pool.Get(def.Imm)
		case ir.OpGuardFun:
			return pool.Get(def.Imm2)
		}
	}
	errors.Violationf(errors.ErrorNotALiteral, "%s does not define a literal", v.Def().Ref())
	return ir.Const{}
}

// Join computes the least upper bound. The kind lattice is
//
//	bottom < constant(d) < value < any
//	bottom < argument(i) < any
//
// where constants from different definitions join to value and an
// argument joined with anything else becomes any.
func (v FValue) Join(o FValue) (FValue, bool) {
	if o.kind == KindBottom {
		return v, false
	}
	res := v
	switch v.kind {
	case KindBottom:
		return o, true

	case KindArgument:
		if o.kind == KindArgument && o.arg == v.arg {
			return v, false
		}
		return Any(), true

	case KindConstant:
		switch {
		case o.kind != KindConstant && o.Pure():
			res.kind = KindValue
		case o.kind != KindConstant:
			return Any(), true
		case o.ud.Def != v.ud.Def:
			res.kind = KindValue
		}

	case KindValue:
		if !o.Pure() {
			return Any(), true
		}

	case KindAny:
		return v, false
	}

	ud, changed := res.ud.join(o.ud)
	res.ud = ud
	return res, changed || res.kind != v.kind
}

func (v FValue) Equal(o FValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindArgument:
		return v.arg == o.arg
	case KindConstant, KindValue:
		return v.ud == o.ud
	}
	return true
}

func (v FValue) String() string {
	switch v.kind {
	case KindArgument:
		return fmt.Sprintf("arg(%d)", v.arg)
	case KindConstant, KindValue:
		return fmt.Sprintf("%s(def %s, use %s)", v.kind, v.ud.Def, v.ud.Use)
	}
	return v.kind.String()
}
