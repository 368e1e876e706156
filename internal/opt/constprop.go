package opt

import (
	"lazyjit/internal/analysis"
	"lazyjit/internal/ir"
)

// ConstantPropagation replaces loads of variables known to hold a pushed
// literal with a push of that literal
type ConstantPropagation struct {
	Options
}

func (p *ConstantPropagation) Name() string { return "constprop" }

func (p *ConstantPropagation) Description() string {
	return "Replaces ldvar of a variable bound to a literal with a push of the literal"
}

type constLoad struct {
	load *ir.Bytecode
	imm  int
}

func (p *ConstantPropagation) Apply(fn *ir.Function) bool {
	r := analysis.Run(fn, analysis.Dataflow{Mode: p.Mode}, p.Engine...)

	var loads []constLoad
	ir.Instructions(fn, func(ins ir.Instruction) {
		if ins.Op() != ir.OpLdVar {
			return
		}
		s, ok := r.At(ins, analysis.Before)
		if !ok {
			return
		}
		load := ins.(*ir.Bytecode)
		sym, _ := fn.Pool.SymbolAt(load.Imm)
		v := s.Get(sym)
		if v.Kind() != analysis.KindConstant {
			return
		}
		if def, ok := v.Def().(*ir.Bytecode); ok && def.Op() == ir.OpPush {
			loads = append(loads, constLoad{load: load, imm: def.Imm})
		}
	})

	for _, l := range loads {
		bb := l.load.Block()
		i := bb.IndexOf(l.load)
		push := fn.NewBytecode(ir.OpPush, l.imm, 0)
		fn.ReplaceUsesWith(l.load, push)
		bb.Remove(i)
		bb.InsertAt(i, push)
		log.Debug("load replaced by constant", "function", fn.Name, "load", l.load.Ref(), "constant", fn.Pool.Get(l.imm))
		p.check(fn)
	}
	return len(loads) > 0
}
