package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyjit/internal/ir"
	"lazyjit/internal/parser"
)

func TestIntersectionSetJoin(t *testing.T) {
	a := NewIntersectionSet(1, 2, 3)
	b := NewIntersectionSet(3, 2, 5)

	ab, changed := a.Join(b)
	assert.True(t, changed)
	assert.Equal(t, []int{2, 3}, ab.Items(), "the receiver's order is kept")

	ba, _ := b.Join(a)
	assert.True(t, ab.Equal(ba))

	var unreached IntersectionSet[int]
	res, changed := a.Join(unreached)
	assert.False(t, changed)
	assert.True(t, res.Equal(a))

	res, changed = unreached.Join(a)
	assert.True(t, changed)
	assert.True(t, res.Equal(a))

	empty := NewIntersectionSet[int]()
	assert.False(t, empty.Equal(unreached), "reached and empty is not unreached")
}

func TestIntersectionSetLast(t *testing.T) {
	s := NewIntersectionSet[string]()
	_, ok := s.Last()
	assert.False(t, ok)

	s.Insert("a")
	s.Insert("b")
	assert.False(t, s.Insert("a"))
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last)
}

func TestIntersectionSetCopiesDoNotAlias(t *testing.T) {
	s := NewIntersectionSet(1, 2)
	c1, c2 := s, s
	c1.Insert(3)
	c2.Insert(4)

	assert.Equal(t, []int{1, 2}, s.Items())
	assert.Equal(t, []int{1, 2, 3}, c1.Items())
	assert.Equal(t, []int{1, 2, 4}, c2.Items())
}

func TestAvailableCheckpointsKilledByEffects(t *testing.T) {
	fn := parser.MustParseFunction(`
func f(x) {
bb0:
    %0 = checkpoint -> bb1, d0
bb1:
    %1 = push(true)
    %2 = checkpoint -> bb2, d1
bb2:
    stvar(y)
    %3 = checkpoint -> bb3, d2
bb3:
    return
d0:
    deopt
d1:
    deopt
d2:
    deopt
}
`)
	cp0 := fn.Block(0).Last()
	cp1 := fn.Block(1).Last().(*ir.Checkpoint)
	cp2 := fn.Block(2).Last()
	r := Run(fn, AvailableCheckpoints{})

	s, ok := r.At(cp1, Before)
	require.True(t, ok)
	assert.Equal(t, []*ir.Checkpoint{cp0.(*ir.Checkpoint)}, s.Set.Items())

	s, _ = r.At(cp1, After)
	last, ok := s.Set.Last()
	require.True(t, ok)
	assert.Same(t, cp1, last)

	s, _ = r.At(cp2, Before)
	assert.Zero(t, s.Set.Len(), "stvar is a deopt barrier")
	assert.True(t, s.Set.Reached())
}

func TestAvailableCheckpointsIntersectAtMerge(t *testing.T) {
	fn := parser.MustParseFunction(`
func f() {
bb0:
    %0 = checkpoint -> bb1, d0
bb1:
    %1 = push(true)
    branch -> bb2, bb3
bb2:
    %2 = checkpoint -> bb4, d1
bb3:
    goto -> bb4
bb4:
    return
d0:
    deopt
d1:
    deopt
}
`)
	r := Run(fn, AvailableCheckpoints{})
	s, ok := r.Entry(4)
	require.True(t, ok)
	assert.Equal(t, []*ir.Checkpoint{fn.Block(0).Last().(*ir.Checkpoint)}, s.Set.Items())
}

func TestAvailableAssumptions(t *testing.T) {
	fn := parser.MustParseFunction(`
func f(x) {
bb0:
    %0 = ldvar(x)
    %1 = is(%0)
    %2 = checkpoint -> bb1, d0
bb1:
    %3 = push(true)
    branch -> bb2, bb3
bb2:
    assume(%1, %2)
    goto -> bb4
bb3:
    assume(%1, %2)
    assume(!%1, %2)
    assume(true, %2)
    goto -> bb4
bb4:
    assume(true, %2)
    return
d0:
    deopt
}
`)
	r := Run(fn, AvailableAssumptions{})
	cond := fn.Block(0).Instrs[1]

	s, ok := r.Entry(4)
	require.True(t, ok)
	assert.Equal(t, []Assumption{{AssumeTrue: true, Cond: cond}}, s.Set.Items())

	s, _ = r.Exit(3)
	assert.Equal(t, 3, s.Set.Len())
	assert.True(t, s.Set.Includes(Assumption{AssumeTrue: false, Cond: cond}))

	lit3 := AssumptionOf(fn.Block(3).Instrs[2].(*ir.Assume))
	lit4 := AssumptionOf(fn.Block(4).Instrs[0].(*ir.Assume))
	assert.Equal(t, lit3, lit4, "literal conditions compare by value")
}

func TestSignature(t *testing.T) {
	fn := parser.MustParseFunction(`
func f(a, b, c) {
bb0:
    %0 = ldvar(a)
    pop
    %1 = push(true)
    branch -> bb1, bb2
bb1:
    %2 = ldvar(b)
    pop
    goto -> bb3
bb2:
    %3 = push(1)
    stvar(c)
    goto -> bb3
bb3:
    %4 = ldvar(c)
    pop
    return
}
`)
	s, ok := Run(fn, Signature{}).Final()
	require.True(t, ok)
	assert.True(t, s.Leaf)
	assert.Equal(t, Yes, s.Args[0].Forced)
	assert.Equal(t, Maybe, s.Args[1].Forced)
	assert.Equal(t, Maybe, s.Args[2].Forced, "c may have been overwritten before the load")
	assert.Equal(t, Maybe, s.Args[2].Contains)
}

func TestSignatureCallsAreNotLeaf(t *testing.T) {
	fn := parser.MustParseFunction(`
func f(a) {
bb0:
    %0 = ldfun(g)
    %1 = call(0)
    return
}
`)
	s, ok := Run(fn, Signature{}).Final()
	require.True(t, ok)
	assert.False(t, s.Leaf)
	assert.Equal(t, No, s.Args[0].Forced)
}
