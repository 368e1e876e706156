package analysis

import (
	"fmt"

	"lazyjit/internal/ir"
)

// AvailableCheckpoints computes, for every program point, the checkpoints
// a guard placed there may deoptimize to: those reached on every incoming
// path with no effectful instruction since. Deoptimizing past an effect
// would replay it.
type AvailableCheckpoints struct{}

type CheckpointState = SetState[*ir.Checkpoint]

func (AvailableCheckpoints) Name() string { return "AvailableCheckpoints" }

func (AvailableCheckpoints) Initial(*ir.Function) *CheckpointState {
	return &CheckpointState{Set: NewIntersectionSet[*ir.Checkpoint]()}
}

func (AvailableCheckpoints) Transfer(s *CheckpointState, ins ir.Instruction) {
	if cp, ok := ins.(*ir.Checkpoint); ok {
		s.Set.Insert(cp)
		return
	}
	if !ins.Pure() {
		s.Set.Clear()
	}
}

// Assumption identifies a guarded fact: a condition with a polarity.
// Literal conditions compare by constant, instructions by identity.
type Assumption struct {
	AssumeTrue bool
	Cond       any
}

// AssumptionOf returns the fact a guards
func AssumptionOf(a *ir.Assume) Assumption {
	cond := any(a.Condition())
	if lit, ok := a.Condition().(*ir.Literal); ok {
		cond = lit.Const
	}
	return Assumption{AssumeTrue: a.AssumeTrue, Cond: cond}
}

func (a Assumption) String() string {
	neg := ""
	if !a.AssumeTrue {
		neg = "!"
	}
	if v, ok := a.Cond.(ir.Value); ok {
		return neg + v.Ref()
	}
	return neg + fmt.Sprint(a.Cond)
}

// AvailableAssumptions computes the facts already guarded on every path to
// a program point. Guards are never invalidated: a fact about an SSA value
// stays true.
type AvailableAssumptions struct{}

type AssumptionState = SetState[Assumption]

func (AvailableAssumptions) Name() string { return "AvailableAssumptions" }

func (AvailableAssumptions) Initial(*ir.Function) *AssumptionState {
	return &AssumptionState{Set: NewIntersectionSet[Assumption]()}
}

func (AvailableAssumptions) Transfer(s *AssumptionState, ins ir.Instruction) {
	if a, ok := ins.(*ir.Assume); ok {
		s.Set.Insert(AssumptionOf(a))
	}
}
