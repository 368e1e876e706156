package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

func TestAbstractStateStack(t *testing.T) {
	d := newDefs()
	s := NewAbstractState[FValue]()
	s.Push(ConstantOf(d.one))
	s.Push(ConstantOf(d.two))

	assert.Equal(t, 2, s.Depth())
	assert.Same(t, d.two, s.Top().Def())
	assert.Same(t, d.one, s.Peek(1).Def())

	s.SetPeek(1, Any())
	assert.Equal(t, KindConstant, s.Pop().Kind())
	assert.Equal(t, KindAny, s.Pop().Kind())

	requireViolation(t, errors.ErrorStackUnderflow, func() { s.Pop() })
	requireViolation(t, errors.ErrorStackUnderflow, func() { s.Peek(0) })
	requireViolation(t, errors.ErrorStackUnderflow, func() { s.PopN(1) })
}

func TestAbstractStateMissingSymbolsAreBottom(t *testing.T) {
	s := NewAbstractState[FValue]()
	assert.True(t, s.Get("nope").IsBottom())

	other := NewAbstractState[FValue]()
	other.Set("nope", Bottom())
	assert.True(t, s.Equal(other))
	assert.True(t, other.Equal(s))
}

func TestAbstractStateMerge(t *testing.T) {
	d := newDefs()
	a := NewAbstractState[FValue]()
	a.Set("x", ConstantOf(d.one))
	a.Push(ConstantOf(d.one))

	b := NewAbstractState[FValue]()
	b.Set("x", ConstantOf(d.two))
	b.Set("y", Argument(0))
	b.Push(ConstantOf(d.one))

	assert.True(t, a.MergeWith(b))
	assert.Equal(t, KindValue, a.Get("x").Kind())
	assert.Equal(t, KindArgument, a.Get("y").Kind())
	assert.Equal(t, KindConstant, a.Top().Kind())
	assert.Equal(t, []ir.Symbol{"x", "y"}, a.Symbols())

	assert.False(t, a.MergeWith(b), "merging again changes nothing")
}

func TestAbstractStateMergeDepthMismatch(t *testing.T) {
	a := NewAbstractState[FValue]()
	b := NewAbstractState[FValue]()
	b.Push(Any())
	requireViolation(t, errors.ErrorStackMismatch, func() { a.MergeWith(b) })
}

func TestAbstractStateCloneIsIndependent(t *testing.T) {
	d := newDefs()
	a := NewAbstractState[FValue]()
	a.Set("x", ConstantOf(d.one))
	a.Push(ConstantOf(d.one))

	c := a.Clone()
	c.Set("x", Any())
	c.SetPeek(0, Any())

	assert.Equal(t, KindConstant, a.Get("x").Kind())
	assert.Equal(t, KindConstant, a.Top().Kind())
	assert.False(t, a.Equal(c))
}

func TestMergeAllEnv(t *testing.T) {
	d := newDefs()
	s := NewAbstractState[FValue]()
	s.Set("x", ConstantOf(d.one))
	s.Set("y", Argument(0))
	s.Push(ConstantOf(d.one))

	s.MergeAllEnv(Any())
	assert.Equal(t, KindAny, s.Get("x").Kind())
	assert.Equal(t, KindAny, s.Get("y").Kind())
	assert.Equal(t, KindConstant, s.Top().Kind(), "the stack is untouched")
}
