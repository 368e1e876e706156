package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

const guarded = `
func f(x, y) {
bb0:
    %0 = ldvar(x)
    %1 = is(%0)
    %2 = checkpoint -> bb1, bb2
bb1:
    assume(%1, %2)
    assume(!%1, %2)
    push(42)
    stvar(y)
    goto -> bb3
bb2:
    deopt
bb3:
    return
}
`

func TestParseGuardedFunction(t *testing.T) {
	fns, err := ParseSource("test.pir", guarded)
	require.NoError(t, err)
	require.Len(t, fns, 1)

	fn := fns[0]
	assert.Equal(t, "f", fn.Name)
	assert.Equal(t, []ir.Symbol{"x", "y"}, fn.Params)
	assert.Len(t, fn.Blocks(), 4)

	entry := fn.EntryBlock()
	require.Len(t, entry.Instrs, 3)
	cp, ok := entry.Last().(*ir.Checkpoint)
	require.True(t, ok, "entry should end in a checkpoint")
	assert.Equal(t, ir.BlockID(1), cp.NextBB())
	assert.Equal(t, ir.BlockID(2), cp.DeoptBB())

	body := fn.Block(1)
	a1, ok := body.Instrs[0].(*ir.Assume)
	require.True(t, ok)
	a2 := body.Instrs[1].(*ir.Assume)
	assert.True(t, a1.AssumeTrue)
	assert.False(t, a2.AssumeTrue)
	assert.Same(t, entry.Instrs[1], a1.Condition())
	assert.Same(t, cp, a1.Checkpoint())
	assert.Equal(t, ir.BlockID(3), body.Next0)
	assert.Equal(t, ir.NoBlock, body.Next1)

	assert.NoError(t, ir.Verify(fn))
}

func TestParsePrintRoundTrip(t *testing.T) {
	fn := MustParseFunction(guarded)
	printed := ir.Print(fn)

	again := MustParseFunction(printed)
	assert.Equal(t, printed, ir.Print(again))
}

func TestParseForwardReference(t *testing.T) {
	fn := MustParseFunction(`
func loop(n) {
bb0:
    goto -> bb2
bb1:
    %5 = add(%7, 1)
    pop
    goto -> bb2
bb2:
    %7 = ldvar(n)
    branch(%7) -> bb1, bb3
bb3:
    return
}
`)
	add := fn.Block(1).Instrs[0]
	ld := fn.Block(2).Instrs[0]
	assert.Same(t, ld, add.Operands()[0])
	lit, ok := add.Operands()[1].(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, 1, lit.Const.Value)
}

func TestParseImmediates(t *testing.T) {
	fn := MustParseFunction(`
func f() {
bb0:
    guard_fun(g, @closure(g))
    %0 = static_call_stack(2, @safe(length))
    %1 = call_stack(1)
    %2 = push("hi")
    %3 = push(1.5)
    %4 = push(null)
    %5 = ldfun(h)
    %6 = pull(1)
    return
}
`)
	instrs := fn.EntryBlock().Instrs
	guard := instrs[0].(*ir.Bytecode)
	assert.Equal(t, ir.KindClosure, fn.Pool.Get(guard.Imm2).Kind)

	call := instrs[1].(*ir.Bytecode)
	assert.Equal(t, 2, call.PopCount())
	assert.True(t, fn.Pool.Get(call.Imm2).Safe)

	assert.Equal(t, 2, instrs[2].PopCount(), "call_stack pops its callee too")
	assert.Equal(t, "hi", fn.Pool.Get(instrs[3].(*ir.Bytecode).Imm).Value)
	assert.Equal(t, 1.5, fn.Pool.Get(instrs[4].(*ir.Bytecode).Imm).Value)
	assert.Equal(t, ir.KindNull, fn.Pool.Get(instrs[5].(*ir.Bytecode).Imm).Kind)
	assert.Equal(t, 1, instrs[7].(*ir.Bytecode).Imm)
}

func diagnostics(t *testing.T, source string) Errors {
	t.Helper()
	_, err := ParseSource("bad.pir", source)
	require.Error(t, err)
	errs, ok := err.(Errors)
	require.True(t, ok, "expected Errors, got %T", err)
	return errs
}

func TestParseUnknownOpcodeSuggests(t *testing.T) {
	errs := diagnostics(t, `
func f() {
bb0:
    %0 = ldvr(x)
    return
}
`)
	require.Len(t, errs, 1)
	assert.Equal(t, ierrors.ErrorUnknownOpcode, errs[0].Code)
	assert.Equal(t, 4, errs[0].Position.Line)
	assert.Contains(t, errs[0].Suggestion, "ldvar")
}

func TestParseResolutionErrors(t *testing.T) {
	errs := diagnostics(t, `
func f() {
bb0:
    %0 = push(1)
    %0 = push(2)
    %1 = not(%9)
    goto -> bb7
}
`)
	var codes []string
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, ierrors.ErrorDuplicateDefinition)
	assert.Contains(t, codes, ierrors.ErrorUndefinedValue)
	assert.Contains(t, codes, ierrors.ErrorUndefinedBlock)
}

func TestParseBadOperands(t *testing.T) {
	for name, src := range map[string]string{
		"assume without checkpoint": `func f() {
bb0:
    %0 = push(true)
    assume(%0, %0)
    return
}`,
		"negated push": `func f() {
bb0:
    %0 = push(!1)
    return
}`,
		"checkpoint with one target": `func f() {
bb0:
    %0 = checkpoint -> bb0
}`,
		"ldvar of a number": `func f() {
bb0:
    %0 = ldvar(3)
    return
}`,
	} {
		errs := diagnostics(t, src)
		assert.Equal(t, ierrors.ErrorBadOperand, errs[0].Code, name)
	}
}

func TestParseSyntaxError(t *testing.T) {
	errs := diagnostics(t, "func f( {")
	require.Len(t, errs, 1)
	assert.Equal(t, ierrors.ErrorSyntax, errs[0].Code)
	assert.Equal(t, "bad.pir", errs[0].Position.Filename)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("does/not/exist.pir")
	assert.Error(t, err)
}
