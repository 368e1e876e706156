package ir

import (
	"testing"
)

func TestDominatorsDiamond(t *testing.T) {
	fn := buildDiamond()
	dom := BuildDomTree(fn)

	for _, id := range []BlockID{0, 1, 2, 3} {
		if !dom.Dominates(fn.Entry, id) {
			t.Errorf("entry should dominate %s", id)
		}
		if !dom.Dominates(id, id) {
			t.Errorf("%s should dominate itself", id)
		}
	}
	if dom.Dominates(1, 3) || dom.Dominates(2, 3) {
		t.Error("neither arm of a diamond dominates the join")
	}
	if got := dom.Idom(3); got != fn.Entry {
		t.Errorf("expected idom(bb3) = bb0, got %s", got)
	}
	if got := dom.Idom(fn.Entry); got != NoBlock {
		t.Errorf("entry has no idom, got %s", got)
	}
	if len(dom.Children(fn.Entry)) != 3 {
		t.Errorf("entry should immediately dominate 3 blocks, got %v", dom.Children(fn.Entry))
	}
}

func TestDominatorsIgnoreUnreachable(t *testing.T) {
	fn := buildDiamond()
	dead := fn.NewBlock()
	dead.Next0 = 3
	dom := BuildDomTree(fn)

	if dom.Dominates(dead.ID, 3) || dom.Dominates(fn.Entry, dead.ID) {
		t.Error("unreachable blocks take no part in dominance")
	}
	if got := dom.Idom(3); got != fn.Entry {
		t.Errorf("unreachable predecessor should not change idom(bb3), got %s", got)
	}
}

func TestInstrDominates(t *testing.T) {
	fn := buildDiamond()
	dom := BuildDomTree(fn)
	ld := fn.EntryBlock().Instrs[0]
	br := fn.EntryBlock().Instrs[1]
	leftPush := fn.Block(1).Instrs[0]
	rightPush := fn.Block(2).Instrs[0]

	if !dom.InstrDominates(ld, br) || dom.InstrDominates(br, ld) {
		t.Error("within a block dominance is program order")
	}
	if !dom.InstrDominates(ld, leftPush) {
		t.Error("entry instructions dominate the arms")
	}
	if dom.InstrDominates(leftPush, rightPush) {
		t.Error("sibling arms do not dominate each other")
	}
}

func TestLoops(t *testing.T) {
	fn := buildLoop()
	dom := BuildDomTree(fn)
	loops := Loops(fn, dom)

	if len(loops) != 1 {
		t.Fatalf("expected one loop, got %d", len(loops))
	}
	l := loops[0]
	if l.Header != 1 {
		t.Errorf("expected header bb1, got %s", l.Header)
	}
	if !l.Contains(1) || !l.Contains(2) || l.Contains(0) || l.Contains(3) {
		t.Errorf("unexpected loop body %v", l.Body)
	}
	if LoopOf(loops, 2) != l || LoopOf(loops, 3) != nil {
		t.Error("LoopOf should find the loop of body blocks only")
	}
}

func TestNoLoopsInDiamond(t *testing.T) {
	fn := buildDiamond()
	if loops := Loops(fn, BuildDomTree(fn)); len(loops) != 0 {
		t.Errorf("a diamond has no back edges, got %d loops", len(loops))
	}
}
