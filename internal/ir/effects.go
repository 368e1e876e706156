package ir

// Opcode tags every instruction. The set is closed: analyses switch over it
// and each case list is expected to cover every opcode.
type Opcode uint8

const (
	OpPush Opcode = iota
	OpLdFun
	OpLdVar
	OpLdDDVar
	OpLdArg
	OpStVar
	OpForce
	OpCall
	OpCallStack
	OpStaticCallStack
	OpDispatch
	OpDispatchStack
	OpGuardFun
	OpSwap
	OpPull
	OpPut
	OpPick
	OpDup
	OpDup2
	OpPop
	OpUniq
	OpBrObj
	OpAlloc
	OpLabel
	OpInc
	OpIs
	OpIsFun
	OpExtract1
	OpSubset1
	OpExtract2
	OpSubset2
	OpClose
	OpLglOr
	OpLglAnd
	OpTestBounds
	OpSeq
	OpNames
	OpLength
	OpAdd
	OpSub
	OpMul
	OpLt
	OpEq
	OpNot
	OpAsBool
	OpBranch
	OpReturn
	OpDeopt
	OpCheckpoint
	OpAssume

	numOpcodes
)

// PopAll is the pop count of instructions that drain the whole stack
const PopAll = -1

// varPop marks opcodes whose pop count comes from the immediate
const varPop = -2

type opInfo struct {
	name string
	pop  int
	push int
	// pure instructions have no observable side effect: they neither force
	// promises nor write the environment nor leave the function
	pure bool
	// evaluated results are never promises
	evaluated bool
	// terminators end a block
	term bool
	// immediate shapes, used by the printer and the text parser
	pooled  bool
	counted bool
}

var opTable = [numOpcodes]opInfo{
	OpPush:            {name: "push", pop: 0, push: 1, pure: true, evaluated: true, pooled: true},
	OpLdFun:           {name: "ldfun", pop: 0, push: 1, pooled: true},
	OpLdVar:           {name: "ldvar", pop: 0, push: 1, pooled: true},
	OpLdDDVar:         {name: "ldddvar", pop: 0, push: 1, pooled: true},
	OpLdArg:           {name: "ldarg", pop: 0, push: 1, pooled: true},
	OpStVar:           {name: "stvar", pop: 1, push: 0, pooled: true},
	OpForce:           {name: "force", pop: 1, push: 1},
	OpCall:            {name: "call", pop: 1, push: 1, counted: true},
	OpCallStack:       {name: "call_stack", pop: varPop, push: 1, counted: true},
	OpStaticCallStack: {name: "static_call_stack", pop: varPop, push: 1},
	OpDispatch:        {name: "dispatch", pop: 1, push: 1},
	OpDispatchStack:   {name: "dispatch_stack", pop: varPop, push: 1, counted: true},
	OpGuardFun:        {name: "guard_fun", pop: 0, push: 0, pooled: true},
	OpSwap:            {name: "swap", pop: 2, push: 2, pure: true},
	OpPull:            {name: "pull", pop: 0, push: 1, pure: true, counted: true},
	OpPut:             {name: "put", pop: 0, push: 0, pure: true, counted: true},
	OpPick:            {name: "pick", pop: 0, push: 0, pure: true, counted: true},
	OpDup:             {name: "dup", pop: 0, push: 1, pure: true},
	OpDup2:            {name: "dup2", pop: 0, push: 2, pure: true},
	OpPop:             {name: "pop", pop: 1, push: 0, pure: true},
	OpUniq:            {name: "uniq", pop: 0, push: 0, pure: true},
	OpBrObj:           {name: "brobj", pop: 0, push: 0, pure: true},
	OpAlloc:           {name: "alloc", pop: 1, push: 1, pure: true, evaluated: true},
	OpLabel:           {name: "label", pop: 0, push: 0, pure: true},
	OpInc:             {name: "inc", pop: 1, push: 1, pure: true, evaluated: true},
	OpIs:              {name: "is", pop: 1, push: 1, pure: true, evaluated: true},
	OpIsFun:           {name: "isfun", pop: 1, push: 1, pure: true, evaluated: true},
	OpExtract1:        {name: "extract1", pop: 2, push: 1, evaluated: true},
	OpSubset1:         {name: "subset1", pop: 2, push: 1, evaluated: true},
	OpExtract2:        {name: "extract2", pop: 2, push: 1, evaluated: true},
	OpSubset2:         {name: "subset2", pop: 2, push: 1, evaluated: true},
	OpClose:           {name: "close", pop: 3, push: 1, pure: true, evaluated: true},
	OpLglOr:           {name: "lgl_or", pop: 2, push: 1, pure: true, evaluated: true},
	OpLglAnd:          {name: "lgl_and", pop: 2, push: 1, pure: true, evaluated: true},
	OpTestBounds:      {name: "test_bounds", pop: 2, push: 1, pure: true, evaluated: true},
	OpSeq:             {name: "seq", pop: 3, push: 1, pure: true, evaluated: true},
	OpNames:           {name: "names", pop: 1, push: 1, pure: true, evaluated: true},
	OpLength:          {name: "length", pop: 1, push: 1, pure: true, evaluated: true},
	OpAdd:             {name: "add", pop: 2, push: 1},
	OpSub:             {name: "sub", pop: 2, push: 1},
	OpMul:             {name: "mul", pop: 2, push: 1},
	OpLt:              {name: "lt", pop: 2, push: 1},
	OpEq:              {name: "eq", pop: 2, push: 1},
	OpNot:             {name: "not", pop: 1, push: 1},
	OpAsBool:          {name: "as_bool", pop: 1, push: 1},
	OpBranch:          {name: "branch", pop: 1, push: 0, pure: true, term: true},
	OpReturn:          {name: "return", pop: PopAll, push: 0, pure: true, term: true},
	OpDeopt:           {name: "deopt", pop: 0, push: 0, term: true},
	OpCheckpoint:      {name: "checkpoint", pop: 0, push: 0, pure: true, term: true},
	OpAssume:          {name: "assume", pop: 0, push: 0, pure: true},
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		m[opTable[op].name] = op
	}
	return m
}()

func (op Opcode) String() string {
	if op >= numOpcodes {
		return "invalid"
	}
	return opTable[op].name
}

// Valid reports whether op is a known opcode
func (op Opcode) Valid() bool { return op < numOpcodes }

// IsTerminator reports whether op ends a block
func (op Opcode) IsTerminator() bool { return opTable[op].term }

// IsPure reports whether op is free of observable side effects
func (op Opcode) IsPure() bool { return opTable[op].pure }

// ProducesEvaluated reports whether the values op pushes are never promises
func (op Opcode) ProducesEvaluated() bool { return opTable[op].evaluated }

func (op Opcode) usesPool() bool  { return opTable[op].pooled }
func (op Opcode) usesCount() bool { return opTable[op].counted }

// UsesPool reports whether Imm is a constant pool index
func (op Opcode) UsesPool() bool { return op.usesPool() }

// UsesCount reports whether Imm is a count or stack offset
func (op Opcode) UsesCount() bool { return op.usesCount() }

// LookupOpcode maps a mnemonic to its opcode
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opByName[name]
	return op, ok
}

// Opcodes returns every opcode in declaration order
func Opcodes() []Opcode {
	out := make([]Opcode, numOpcodes)
	for i := range out {
		out[i] = Opcode(i)
	}
	return out
}
