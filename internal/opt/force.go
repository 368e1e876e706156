package opt

import (
	"lazyjit/internal/analysis"
	"lazyjit/internal/ir"
)

// ForceElision drops forces of values that are already evaluated. A force
// that other instructions reference is only dropped when it names its
// operand, so the references can be redirected.
type ForceElision struct {
	Options
}

func (p *ForceElision) Name() string { return "force-elision" }

func (p *ForceElision) Description() string {
	return "Removes force of values that can never be promises"
}

func (p *ForceElision) Apply(fn *ir.Function) bool {
	r := analysis.Run(fn, analysis.Dataflow{Mode: p.Mode}, p.Engine...)

	var forces []ir.Instruction
	ir.Instructions(fn, func(ins ir.Instruction) {
		if ins.Op() != ir.OpForce {
			return
		}
		s, ok := r.At(ins, analysis.Before)
		if !ok || s.Depth() == 0 || !s.Top().IsValue() {
			return
		}
		if len(ins.Operands()) == 0 && len(fn.Users(ins)) > 0 {
			return
		}
		forces = append(forces, ins)
	})

	for _, f := range forces {
		if args := f.Operands(); len(args) > 0 {
			fn.ReplaceUsesWith(f, args[0])
		}
		ir.RemoveInstr(f)
		log.Debug("force elided", "function", fn.Name, "force", f.Ref())
		p.check(fn)
	}
	return len(forces) > 0
}
