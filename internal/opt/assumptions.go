package opt

import (
	"lazyjit/internal/analysis"
	"lazyjit/internal/ir"
)

// OptimizeAssumptions removes redundant checkpoints and moves guards as
// early as the available checkpoints allow:
//
//   - a checkpoint with another checkpoint available right before it is
//     replaced by that one and its deopt block dropped
//   - a guard whose fact already holds on every path is deleted
//   - a guard is rebound to the topmost available checkpoint
//   - a guard is hoisted next to the definition of its condition, or into
//     the preheader of the loop it sits in
//
// Decisions are taken on an unmodified graph and applied afterwards.
type OptimizeAssumptions struct {
	Options
}

func (p *OptimizeAssumptions) Name() string { return "assumptions" }

func (p *OptimizeAssumptions) Description() string {
	return "Deduplicates checkpoints and removes, retargets and hoists assumes"
}

func (p *OptimizeAssumptions) Apply(fn *ir.Function) bool {
	preheaders := insertPreheaders(fn)

	dom := ir.BuildDomTree(fn)
	pl := &planner{
		fn:          fn,
		opts:        p.Options,
		dom:         dom,
		loops:       ir.Loops(fn, dom),
		preheaders:  preheaders,
		checkpoints: analysis.Run(fn, analysis.AvailableCheckpoints{}, p.Engine...),
		assumptions: analysis.Run(fn, analysis.AvailableAssumptions{}, p.Engine...),
		repl:        NewReplacements(),
		staged:      make(map[stageKey]bool),
	}
	ir.Visit(fn, func(bb *ir.BasicBlock) {
		for _, ins := range bb.Instrs {
			switch x := ins.(type) {
			case *ir.Checkpoint:
				pl.checkpoint(x)
			case *ir.Assume:
				pl.assume(x)
			}
		}
	})

	changed := pl.commit() || len(preheaders) > 0
	ir.MustVerify(fn)
	return changed
}

// insertPreheaders splits every edge from a checkpoint into a merge block
// with an empty block, so guards hoisted out of a loop have somewhere to
// land. It returns the new block for each merge block.
func insertPreheaders(fn *ir.Function) map[ir.BlockID]ir.BlockID {
	preds := ir.Predecessors(fn)
	out := make(map[ir.BlockID]ir.BlockID)
	ir.VisitPostChange(fn, func(bb *ir.BasicBlock) {
		if !bb.IsBranch() {
			return
		}
		if _, ok := bb.Last().(*ir.Checkpoint); !ok {
			return
		}
		header := bb.Next0
		if !preds.IsMerge(header) {
			return
		}
		if _, done := out[header]; done {
			return
		}
		mid := fn.SplitEdge(bb, header)
		out[header] = mid.ID
		log.Debug("preheader inserted", "function", fn.Name, "header", header, "preheader", mid.ID)
	})
	return out
}

type dedup struct {
	cp *ir.Checkpoint
}

type retarget struct {
	a  *ir.Assume
	cp *ir.Checkpoint
}

// hoist moves a guard to just after a definition, or to the end of a
// block when after is nil
type hoist struct {
	a     *ir.Assume
	after ir.Instruction
	block ir.BlockID
	cp    *ir.Checkpoint
}

type stageKey struct {
	after ir.Instruction
	block ir.BlockID
	fact  analysis.Assumption
	cp    *ir.Checkpoint
}

type planner struct {
	fn          *ir.Function
	opts        Options
	dom         *ir.DomTree
	loops       []*ir.Loop
	preheaders  map[ir.BlockID]ir.BlockID
	checkpoints *analysis.Result[*analysis.CheckpointState]
	assumptions *analysis.Result[*analysis.AssumptionState]
	repl        *Replacements

	dedups    []dedup
	deletes   []*ir.Assume
	retargets []retarget
	hoists    []hoist
	staged    map[stageKey]bool
}

func (pl *planner) checkpoint(cp *ir.Checkpoint) {
	s, ok := pl.checkpoints.At(cp, analysis.Before)
	if !ok {
		return
	}
	items := s.Set.Items()
	for i := len(items) - 1; i >= 0; i-- {
		cp0 := pl.repl.Resolve(items[i])
		if cp0 == cp {
			continue
		}
		pl.repl.Record(cp, cp0)
		pl.dedups = append(pl.dedups, dedup{cp: cp})
		return
	}
}

func (pl *planner) assume(a *ir.Assume) {
	fact := analysis.AssumptionOf(a)
	if s, ok := pl.assumptions.At(a, analysis.Before); ok && s.Set.Includes(fact) {
		pl.deletes = append(pl.deletes, a)
		return
	}

	current := pl.repl.Resolve(a.Checkpoint())
	target := current
	if s, ok := pl.checkpoints.At(a, analysis.Before); ok {
		for _, c := range s.Set.Items() {
			c = pl.repl.Resolve(c)
			if c != current && pl.dom.InstrDominates(c, current) {
				target = c
				break
			}
		}
	}

	if h, ok := pl.landingPad(a); ok {
		pl.stage(h)
		return
	}
	if h, ok := pl.afterDefinition(a, target); ok {
		pl.stage(h)
		return
	}
	if target != current {
		pl.retargets = append(pl.retargets, retarget{a: a, cp: target})
	}
}

// landingPad relocates a guard inside a loop into the loop's preheader
// when its condition is computed before the loop and the preheader
// dominates the header
func (pl *planner) landingPad(a *ir.Assume) (hoist, bool) {
	def, ok := a.Condition().(ir.Instruction)
	if !ok || def.Block() == nil {
		return hoist{}, false
	}
	loop := ir.LoopOf(pl.loops, a.Block().ID)
	if loop == nil || loop.Contains(def.Block().ID) {
		return hoist{}, false
	}
	// the preheader must be the only way into the loop, otherwise the
	// other entries would run the body unguarded
	pre, ok := pl.preheaders[loop.Header]
	if !ok || !pl.dom.Dominates(pre, loop.Header) || !pl.dom.Dominates(def.Block().ID, pre) {
		return hoist{}, false
	}
	s, ok := pl.checkpoints.Exit(pre)
	if !ok {
		return hoist{}, false
	}
	cp, ok := s.Set.Last()
	if !ok {
		return hoist{}, false
	}
	return hoist{a: a, block: pre, cp: pl.repl.Resolve(cp)}, true
}

// afterDefinition moves a guard up to its condition when a different
// checkpoint is available there
func (pl *planner) afterDefinition(a *ir.Assume, current *ir.Checkpoint) (hoist, bool) {
	def, ok := a.Condition().(ir.Instruction)
	if !ok || def.Block() == nil || current.Block() == nil || def.Block() == current.Block() {
		return hoist{}, false
	}
	s, ok := pl.checkpoints.At(def, analysis.After)
	if !ok {
		return hoist{}, false
	}
	cp, ok := s.Set.Last()
	if !ok {
		return hoist{}, false
	}
	cp = pl.repl.Resolve(cp)
	if cp == current {
		return hoist{}, false
	}
	return hoist{a: a, after: def, block: ir.NoBlock, cp: cp}, true
}

// stage queues h; an identical guard already staged at the same spot
// makes it a plain deletion
func (pl *planner) stage(h hoist) {
	key := stageKey{after: h.after, block: h.block, fact: analysis.AssumptionOf(h.a), cp: h.cp}
	if pl.staged[key] {
		pl.deletes = append(pl.deletes, h.a)
		return
	}
	pl.staged[key] = true
	pl.hoists = append(pl.hoists, h)
}

func (pl *planner) commit() bool {
	fn := pl.fn
	for _, d := range pl.dedups {
		to := pl.repl.Resolve(d.cp)
		fn.ReplaceUsesWith(d.cp, to)
		bb := d.cp.Block()
		deopt := bb.Next1
		ir.RemoveInstr(d.cp)
		bb.Next1 = ir.NoBlock
		if !hasPredecessor(fn, deopt) {
			fn.RemoveBlock(deopt)
		}
		log.Debug("checkpoint deduplicated", "function", fn.Name, "checkpoint", d.cp.Ref(), "into", to.Ref())
		pl.opts.check(fn)
	}

	for _, a := range pl.deletes {
		ir.RemoveInstr(a)
		log.Debug("assume subsumed", "function", fn.Name, "assume", a.Ref())
		pl.opts.check(fn)
	}

	for _, r := range pl.retargets {
		cp := pl.repl.Resolve(r.cp)
		r.a.SetCheckpoint(cp)
		log.Debug("assume retargeted", "function", fn.Name, "assume", r.a.Ref(), "checkpoint", cp.Ref())
		pl.opts.check(fn)
	}

	// guards hoisted to the same definition keep their relative order
	last := make(map[ir.Instruction]ir.Instruction)
	for _, h := range pl.hoists {
		ir.RemoveInstr(h.a)
		moved := fn.NewAssume(h.a.Condition(), pl.repl.Resolve(h.cp), h.a.AssumeTrue)
		if h.after != nil {
			pos := h.after
			if prev, ok := last[h.after]; ok {
				pos = prev
			}
			h.after.Block().InsertAfter(pos, moved)
			last[h.after] = moved
		} else {
			fn.Block(h.block).Append(moved)
		}
		log.Debug("assume hoisted", "function", fn.Name, "assume", h.a.Ref(), "to", moved.Block().ID, "checkpoint", moved.Checkpoint().Ref())
		pl.opts.check(fn)
	}

	return len(pl.dedups)+len(pl.deletes)+len(pl.retargets)+len(pl.hoists) > 0
}

func hasPredecessor(fn *ir.Function, id ir.BlockID) bool {
	if id == ir.NoBlock {
		return true
	}
	for _, bb := range fn.Blocks() {
		if bb.Next0 == id || bb.Next1 == id {
			return true
		}
	}
	return false
}
