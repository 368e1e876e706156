package analysis

import (
	"fmt"
	"slices"
	"strings"

	"lazyjit/internal/ir"
)

// ArgUse describes what a function does with one formal argument
type ArgUse struct {
	// Forced is whether the argument's promise is evaluated
	Forced Bool3
	// Contains is whether the argument variable still holds the original
	// argument at that point
	Contains Bool3
}

// SignatureState summarizes a function body's use of its arguments
type SignatureState struct {
	Leaf bool
	Args []ArgUse
}

func (s *SignatureState) Clone() *SignatureState {
	return &SignatureState{Leaf: s.Leaf, Args: slices.Clone(s.Args)}
}

func (s *SignatureState) MergeWith(o *SignatureState) bool {
	changed := false
	if s.Leaf && !o.Leaf {
		s.Leaf = false
		changed = true
	}
	for i := range s.Args {
		f, c1 := s.Args[i].Forced.Join(o.Args[i].Forced)
		c, c2 := s.Args[i].Contains.Join(o.Args[i].Contains)
		s.Args[i] = ArgUse{Forced: f, Contains: c}
		changed = changed || c1 || c2
	}
	return changed
}

func (s *SignatureState) Equal(o *SignatureState) bool {
	return s.Leaf == o.Leaf && slices.Equal(s.Args, o.Args)
}

func (s *SignatureState) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		parts[i] = fmt.Sprintf("%d:forced=%s", i, a.Forced)
	}
	return fmt.Sprintf("leaf=%t [%s]", s.Leaf, strings.Join(parts, " "))
}

// Signature infers which arguments a function always evaluates and
// whether it calls out. Query the result with Final.
type Signature struct{}

func (Signature) Name() string { return "Signature" }

func (Signature) Initial(fn *ir.Function) *SignatureState {
	s := &SignatureState{Leaf: true, Args: make([]ArgUse, len(fn.Params))}
	for i := range s.Args {
		s.Args[i] = ArgUse{Forced: No, Contains: Yes}
	}
	return s
}

func (Signature) Transfer(s *SignatureState, ins ir.Instruction) {
	switch ins.Op() {
	case ir.OpLdVar, ir.OpLdFun:
		if i, ok := argIndex(ins); ok {
			a := &s.Args[i]
			switch {
			case a.Contains == Yes:
				a.Forced = Yes
			case a.Contains == Maybe && a.Forced == No:
				a.Forced = Maybe
			}
		}
	case ir.OpStVar:
		if i, ok := argIndex(ins); ok {
			s.Args[i].Contains = No
		}
	case ir.OpCall, ir.OpCallStack, ir.OpStaticCallStack, ir.OpDispatch, ir.OpDispatchStack:
		s.Leaf = false
	}
}

// argIndex maps the symbol a load or store names to a parameter index
func argIndex(ins ir.Instruction) (int, bool) {
	b := ins.(*ir.Bytecode)
	fn := b.Block().Function()
	sym, ok := fn.Pool.SymbolAt(b.Imm)
	if !ok {
		return 0, false
	}
	i := slices.Index(fn.Params, sym)
	return i, i >= 0
}
