package ir

import (
	"testing"

	"lazyjit/internal/errors"
)

// ============================================================================
// Fixtures
// ============================================================================

func num(n int) Const { return Const{Kind: KindNumber, Value: n} }

// diamond: bb0 branches to bb1 and bb2, both fall through to bb3
func buildDiamond() *Function {
	fn := NewFunction("f", "x")
	b := NewBuilder(fn)
	left, right, join := b.CreateBlock(), b.CreateBlock(), b.CreateBlock()

	cond := b.LdVar("x")
	b.Branch(left.ID, right.ID, cond)

	b.SetBlock(left)
	b.Push(num(1))
	b.Op(OpPop)
	b.Goto(join.ID)

	b.SetBlock(right)
	b.Push(num(2))
	b.Op(OpPop)
	b.Goto(join.ID)

	b.SetBlock(join)
	b.Return()
	return fn
}

// loop: bb0 -> bb1 (header) -> bb2 (body) -> bb1, header exits to bb3
func buildLoop() *Function {
	fn := NewFunction("loop", "x")
	b := NewBuilder(fn)
	header, body, exit := b.CreateBlock(), b.CreateBlock(), b.CreateBlock()
	b.Goto(header.ID)

	b.SetBlock(header)
	cond := b.LdVar("x")
	b.Branch(body.ID, exit.ID, cond)

	b.SetBlock(body)
	b.Goto(header.ID)

	b.SetBlock(exit)
	b.Return()
	return fn
}

func expectViolation(t *testing.T, code string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		v, ok := errors.AsViolation(r)
		if !ok {
			t.Fatalf("expected violation %s, got %v", code, r)
		}
		if v.Code != code {
			t.Errorf("expected violation %s, got %s: %s", code, v.Code, v.Message)
		}
	}()
	f()
}

// ============================================================================
// Builder Tests
// ============================================================================

func TestNewFunction(t *testing.T) {
	fn := NewFunction("f", "a", "b")

	if fn.EntryBlock() == nil {
		t.Fatal("NewFunction should create an entry block")
	}
	if fn.Pool.Len() != 2 {
		t.Errorf("expected parameters to be interned, pool has %d entries", fn.Pool.Len())
	}
	if s, ok := fn.Pool.SymbolAt(1); !ok || s != "b" {
		t.Errorf("expected pool[1] to be symbol b, got %q", s)
	}
}

func TestBuilderPlacesInstructions(t *testing.T) {
	fn := buildDiamond()
	entry := fn.EntryBlock()

	if len(entry.Instrs) != 2 {
		t.Fatalf("expected 2 instructions in entry, got %d", len(entry.Instrs))
	}
	for _, ins := range entry.Instrs {
		if ins.Block() != entry {
			t.Errorf("%s should belong to %s", ins.Ref(), entry.ID)
		}
	}
	if entry.Instrs[0].ID() >= entry.Instrs[1].ID() {
		t.Error("instruction ids should increase in emission order")
	}
	if !entry.IsBranch() {
		t.Error("entry should be a branch block")
	}
}

func TestBuilderRejectsCodeAfterTerminator(t *testing.T) {
	fn := NewFunction("f")
	b := NewBuilder(fn)
	b.Return()

	expectViolation(t, errors.ErrorMisplacedTerminator, func() {
		b.Push(num(1))
	})
}

func TestPoolInterning(t *testing.T) {
	p := NewPool()
	a := p.Insert(num(1))
	b := p.Insert(num(1))
	c := p.Symbol("x")

	if a != b {
		t.Error("equal constants should share an index")
	}
	if a == c {
		t.Error("different constants should not share an index")
	}
	if _, ok := p.SymbolAt(a); ok {
		t.Error("a number is not a symbol")
	}
}

// ============================================================================
// Edit Tests
// ============================================================================

func TestInsertAndRemove(t *testing.T) {
	fn := buildDiamond()
	left := fn.Block(1)
	push := left.Instrs[0]

	dup := fn.NewBytecode(OpDup, 0, 0)
	left.InsertAfter(push, dup)
	if left.IndexOf(dup) != 1 || dup.Block() != left {
		t.Fatal("InsertAfter should place the instruction after its anchor")
	}

	next := left.Remove(0)
	if next != 0 || left.Instrs[next] != dup {
		t.Error("Remove should return the cursor of the following instruction")
	}
	if push.Block() != nil {
		t.Error("removed instructions should be detached")
	}

	expectViolation(t, errors.ErrorBadCursor, func() {
		left.InsertAt(0, dup)
	})
}

func TestSplitEdge(t *testing.T) {
	fn := buildDiamond()
	entry := fn.EntryBlock()

	mid := fn.SplitEdge(entry, 1)
	if entry.Next0 != mid.ID || mid.Next0 != 1 {
		t.Errorf("expected %s -> %s -> bb1, got %s -> %s", entry.ID, mid.ID, entry.Next0, mid.Next0)
	}
	if !mid.Empty() {
		t.Error("split block should be empty")
	}
	if err := Verify(fn); err != nil {
		t.Errorf("graph should stay valid: %v", err)
	}
}

func TestReplaceUsesWith(t *testing.T) {
	fn := NewFunction("f", "x")
	b := NewBuilder(fn)
	ok, deopt := b.CreateBlock(), b.CreateBlock()
	cond := b.LdVar("x")
	cp1 := b.Checkpoint(ok.ID, deopt.ID)
	b.SetBlock(deopt)
	b.Deopt()
	b.SetBlock(ok)
	a := b.Assume(cond, cp1, true)
	b.Return()

	cp2 := fn.NewCheckpoint()
	if n := fn.ReplaceUsesWith(cp1, cp2); n != 1 {
		t.Errorf("expected one rewritten operand, got %d", n)
	}
	if a.Checkpoint() != cp2 {
		t.Error("assume should now refer to the replacement")
	}
	if users := fn.Users(cond); len(users) != 1 || users[0] != a {
		t.Errorf("expected the assume to be the only user of the condition, got %v", users)
	}
}

// ============================================================================
// CFG Tests
// ============================================================================

func TestPredecessors(t *testing.T) {
	fn := buildDiamond()
	preds := Predecessors(fn)

	if got := preds.Of(3); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected bb3 preds [bb1 bb2], got %v", got)
	}
	if !preds.IsMerge(3) || preds.IsMerge(1) {
		t.Error("only bb3 is a merge block")
	}
	if !fn.IsMergeBlock(3) {
		t.Error("IsMergeBlock should agree with Predecessors")
	}
}

func TestPruneUnreachable(t *testing.T) {
	fn := buildDiamond()
	dead := fn.NewBlock()
	dead.Next0 = 3

	if n := PruneUnreachable(fn); n != 1 {
		t.Fatalf("expected one block removed, got %d", n)
	}
	if fn.Block(dead.ID) != nil {
		t.Error("unreachable block should be gone from the arena")
	}
	if len(Predecessors(fn).Of(3)) != 2 {
		t.Error("pruning should not touch reachable edges")
	}
}

func TestRemoveBlockSeversEdges(t *testing.T) {
	fn := buildDiamond()
	fn.RemoveBlock(2)

	if fn.EntryBlock().Next1 != NoBlock {
		t.Error("edges into a removed block should be severed")
	}
}

func TestReversePostorder(t *testing.T) {
	fn := buildDiamond()
	order := ReversePostorder(fn)

	if len(order) != 4 || order[0] != fn.Entry || order[3] != 3 {
		t.Errorf("unexpected reverse postorder %v", order)
	}
}

// ============================================================================
// Visitor Tests
// ============================================================================

func TestVisitReachesEveryBlockOnce(t *testing.T) {
	fn := buildLoop()
	seen := map[BlockID]int{}
	Visit(fn, func(bb *BasicBlock) { seen[bb.ID]++ })

	if len(seen) != 4 {
		t.Errorf("expected 4 blocks visited, got %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("%s visited %d times", id, n)
		}
	}
}

func TestVisitPostChangeFollowsSplices(t *testing.T) {
	fn := buildDiamond()
	var spliced BlockID = NoBlock
	seen := map[BlockID]bool{}

	VisitPostChange(fn, func(bb *BasicBlock) {
		seen[bb.ID] = true
		if bb.ID == fn.Entry {
			spliced = fn.SplitEdge(bb, bb.Next0).ID
		}
	})

	if !seen[spliced] {
		t.Error("block spliced by the callback should be visited")
	}
}
