package ir

import (
	"fmt"

	"lazyjit/internal/errors"
)

// Verify checks the structural invariants every pass must preserve and
// returns the first one broken as a *errors.Violation, or nil
func Verify(fn *Function) error {
	reach := Reachable(fn)
	for _, bb := range fn.blocks {
		if bb == nil {
			continue
		}
		if err := verifyBlock(fn, bb, reach); err != nil {
			return err
		}
	}
	return nil
}

// MustVerify panics with the first broken invariant
func MustVerify(fn *Function) {
	if err := Verify(fn); err != nil {
		panic(err)
	}
}

func violation(code, format string, args ...any) error {
	return &errors.Violation{Code: code, Message: fmt.Sprintf(format, args...)}
}

func verifyBlock(fn *Function, bb *BasicBlock, reach []bool) error {
	for _, s := range bb.Successors() {
		if fn.Block(s) == nil {
			return violation(errors.ErrorDanglingEdge, "%s: successor %s does not exist", bb.ID, s)
		}
	}
	if bb.Next0 == NoBlock && bb.Next1 != NoBlock {
		return violation(errors.ErrorBadBranch, "%s: second successor set without a first", bb.ID)
	}

	for i, ins := range bb.Instrs {
		if ins.Block() != bb {
			return violation(errors.ErrorStaleReference, "%s: %s claims to live in %s",
				bb.ID, ins.Ref(), blockName(ins.Block()))
		}
		if ins.Op().IsTerminator() && i != len(bb.Instrs)-1 {
			return violation(errors.ErrorMisplacedTerminator, "%s: %s is not the last instruction",
				bb.ID, ins.Op())
		}
		for _, a := range ins.Operands() {
			def, ok := a.(Instruction)
			if !ok {
				continue
			}
			if def.Block() == nil || fn.Block(def.Block().ID) != def.Block() {
				return violation(errors.ErrorStaleReference, "%s: %s refers to removed %s",
					bb.ID, ins.Ref(), def.Ref())
			}
		}
		if a, ok := ins.(*Assume); ok && reach[bb.ID] {
			cp := a.Checkpoint()
			if cp == nil || cp.Block() == nil || !reach[cp.Block().ID] {
				return violation(errors.ErrorOrphanAssume, "%s: %s has no reachable checkpoint",
					bb.ID, a.Ref())
			}
		}
	}

	switch last := bb.Last(); {
	case last != nil && last.Op() == OpCheckpoint:
		if bb.Next1 == NoBlock {
			return violation(errors.ErrorMissingDeopt, "%s: %s has no deopt successor", bb.ID, last.Ref())
		}
	case last != nil && last.Op() == OpBranch:
		if !bb.IsBranch() {
			return violation(errors.ErrorBadBranch, "%s: branch needs two successors", bb.ID)
		}
	case last != nil && (last.Op() == OpReturn || last.Op() == OpDeopt):
		if !bb.IsExit() {
			return violation(errors.ErrorBadBranch, "%s: %s block has successors", bb.ID, last.Op())
		}
	default:
		if bb.Next1 != NoBlock {
			return violation(errors.ErrorBadBranch, "%s: two successors without a branch or checkpoint", bb.ID)
		}
	}
	return nil
}
