package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
	"lazyjit/internal/parser"
)

const counting = `
func loop(n) {
bb0:
    %0 = push(0)
    stvar(i)
    goto -> bb1
bb1:
    %1 = ldvar(i)
    %2 = ldvar(n)
    %3 = lt
    branch -> bb2, bb3
bb2:
    %4 = ldvar(i)
    %5 = push(1)
    %6 = add
    stvar(i)
    goto -> bb1
bb3:
    return
}
`

func TestEngineLoopFixedPoint(t *testing.T) {
	fn := parser.MustParseFunction(counting)
	r := Run(fn, Dataflow{Mode: NoReflection})

	entry, ok := r.Entry(1)
	require.True(t, ok)
	assert.Equal(t, KindAny, entry.Get("i").Kind(), "the back edge carries the result of add")
	assert.Equal(t, KindArgument, entry.Get("n").Kind())
	assert.Greater(t, r.Visits(), fn.NumBlockIDs(), "the loop header is revisited")
}

func TestEngineOrderDoesNotChangeFixedPoint(t *testing.T) {
	for _, mode := range []Mode{Conservative, NoReflection} {
		fn := parser.MustParseFunction(counting)
		fifo := Run(fn, Dataflow{Mode: mode}, WithOrder(FIFO))
		lifo := Run(fn, Dataflow{Mode: mode}, WithOrder(LIFO))

		for _, bb := range fn.Blocks() {
			a, okA := fifo.Entry(bb.ID)
			b, okB := lifo.Entry(bb.ID)
			require.Equal(t, okA, okB, "%s reached under one order only", bb.ID)
			if okA {
				assert.True(t, a.Equal(b), "%s %s entry: %v vs %v", mode, bb.ID, a, b)
			}
			a, _ = fifo.Exit(bb.ID)
			b, _ = lifo.Exit(bb.ID)
			if okA {
				assert.True(t, a.Equal(b), "%s %s exit: %v vs %v", mode, bb.ID, a, b)
			}
		}
	}
}

func TestEngineStackMismatch(t *testing.T) {
	fn := parser.MustParseFunction(`
func f() {
bb0:
    %0 = push(true)
    branch -> bb1, bb2
bb1:
    %1 = push(1)
    goto -> bb3
bb2:
    goto -> bb3
bb3:
    return
}
`)
	requireViolation(t, errors.ErrorStackMismatch, func() {
		Run(fn, Dataflow{})
	})
}

type counter struct{ n int }

func (c *counter) Clone() *counter { return &counter{n: c.n} }

func (c *counter) MergeWith(o *counter) bool {
	if o.n > c.n {
		c.n = o.n
		return true
	}
	return false
}

func (c *counter) Equal(o *counter) bool { return c.n == o.n }

// increasing never converges on a loop
type increasing struct{}

func (increasing) Name() string                           { return "increasing" }
func (increasing) Initial(*ir.Function) *counter          { return &counter{} }
func (increasing) Transfer(s *counter, _ ir.Instruction) { s.n++ }

func TestEngineVisitBound(t *testing.T) {
	fn := parser.MustParseFunction(counting)
	requireViolation(t, errors.ErrorNonTermination, func() {
		Run[*counter](fn, increasing{}, WithMaxVisits(5))
	})
}

func TestEngineUnreachedBlock(t *testing.T) {
	fn := parser.MustParseFunction(`
func f() {
bb0:
    return
bb1:
    %0 = push(1)
    return
}
`)
	r := Run(fn, Dataflow{})
	assert.True(t, r.Reached(0))
	assert.False(t, r.Reached(1))

	_, ok := r.At(fn.Block(1).Instrs[0], Before)
	assert.False(t, ok)
	_, ok = r.Exit(1)
	assert.False(t, ok)
}

func TestEngineAtReplaysBlock(t *testing.T) {
	fn := parser.MustParseFunction(counting)
	r := Run(fn, Dataflow{Mode: NoReflection})
	body := fn.Block(2).Instrs

	before, ok := r.At(body[2], Before)
	require.True(t, ok)
	assert.Equal(t, 2, before.Depth())

	afterAdd, ok := r.At(body[2], After)
	require.True(t, ok)
	assert.Equal(t, 1, afterAdd.Depth())

	entry, _ := r.Entry(2)
	assert.Equal(t, 0, entry.Depth(), "queries do not disturb stored states")
}

func TestEngineDetachedQuery(t *testing.T) {
	fn := parser.MustParseFunction(counting)
	r := Run(fn, Dataflow{})
	stray := fn.NewBytecode(ir.OpPop, 0, 0)
	requireViolation(t, errors.ErrorStaleReference, func() {
		r.At(stray, Before)
	})
}
