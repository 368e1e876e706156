package ir

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Printer renders functions in the textual IR syntax the parser reads.
// Values and blocks are renumbered in print order, so two functions that
// differ only in instruction identity print the same.
type Printer struct {
	output strings.Builder

	values map[Value]string
	blocks map[BlockID]string

	label  func(a ...interface{}) string
	opcode func(a ...interface{}) string
	value  func(a ...interface{}) string
}

// NewPrinter creates a printer; colored output highlights labels, opcodes
// and value names
func NewPrinter(colored bool) *Printer {
	p := &Printer{
		label:  fmt.Sprint,
		opcode: fmt.Sprint,
		value:  fmt.Sprint,
	}
	if colored {
		p.label = color.New(color.FgCyan, color.Bold).SprintFunc()
		p.opcode = color.New(color.FgYellow).SprintFunc()
		p.value = color.New(color.FgGreen).SprintFunc()
	}
	return p
}

// Print returns the plain textual form of fn
func Print(fn *Function) string {
	return NewPrinter(false).Function(fn)
}

// Function renders fn
func (p *Printer) Function(fn *Function) string {
	p.output.Reset()
	p.values = make(map[Value]string)
	p.blocks = make(map[BlockID]string)

	blocks := fn.Blocks()
	// entry first, the rest in id order
	for i, bb := range blocks {
		if bb.ID == fn.Entry && i != 0 {
			copy(blocks[1:i+1], blocks[:i])
			blocks[0] = bb
			break
		}
	}
	n := 0
	for i, bb := range blocks {
		p.blocks[bb.ID] = fmt.Sprintf("bb%d", i)
		for _, ins := range bb.Instrs {
			if named(ins) {
				p.values[ins] = fmt.Sprintf("%%%d", n)
				n++
			}
		}
	}

	params := make([]string, len(fn.Params))
	for i, s := range fn.Params {
		params[i] = string(s)
	}
	p.writeLine("func %s(%s) {", fn.Name, strings.Join(params, ", "))
	for _, bb := range blocks {
		p.writeLine("%s:", p.label(p.blocks[bb.ID]))
		for _, ins := range bb.Instrs {
			p.printInstr(fn, ins)
		}
		if bb.IsJump() {
			last := bb.Last()
			if last == nil || (last.Op() != OpCheckpoint && last.Op() != OpBranch) {
				p.writeLine("    %s -> %s", p.opcode("goto"), p.label(p.blockName(bb.Next0)))
			}
		}
	}
	p.writeLine("}")
	return p.output.String()
}

func named(ins Instruction) bool {
	return ins.PushCount() > 0 || ins.Op() == OpCheckpoint
}

func (p *Printer) printInstr(fn *Function, ins Instruction) {
	text := render(ins, fn.Pool, p.name)
	if i := strings.IndexAny(text, "( "); i >= 0 {
		text = p.opcode(text[:i]) + text[i:]
	} else {
		text = p.opcode(text)
	}
	if bb := ins.Block(); bb != nil && (ins.Op() == OpCheckpoint || ins.Op() == OpBranch) {
		text = fmt.Sprintf("%s -> %s, %s", text,
			p.label(p.blockName(bb.Next0)), p.label(p.blockName(bb.Next1)))
	}
	if named(ins) {
		p.writeLine("    %s = %s", p.value(p.values[ins]), text)
		return
	}
	p.writeLine("    %s", text)
}

func (p *Printer) name(v Value) string {
	if s, ok := p.values[v]; ok {
		return s
	}
	return v.Ref()
}

func (p *Printer) blockName(id BlockID) string {
	if s, ok := p.blocks[id]; ok {
		return s
	}
	return id.String()
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

// render formats an instruction without its result name or successors
func render(ins Instruction, pool *Pool, name func(Value) string) string {
	var parts []string
	switch ins := ins.(type) {
	case *Assume:
		neg := ""
		if !ins.AssumeTrue {
			neg = "!"
		}
		cp := "<none>"
		if c := ins.Checkpoint(); c != nil {
			cp = name(c)
		}
		return fmt.Sprintf("assume(%s%s, %s)", neg, name(ins.Condition()), cp)
	case *Checkpoint:
		return "checkpoint"
	case *Bytecode:
		switch op := ins.Op(); {
		case op.usesPool():
			parts = append(parts, poolRef(pool, ins.Imm))
			if op == OpGuardFun {
				parts = append(parts, poolRef(pool, ins.Imm2))
			}
		case op == OpStaticCallStack:
			parts = append(parts, fmt.Sprint(ins.Imm), poolRef(pool, ins.Imm2))
		case op.usesCount():
			parts = append(parts, fmt.Sprint(ins.Imm))
		}
	}
	for _, a := range ins.Operands() {
		parts = append(parts, name(a))
	}
	if len(parts) == 0 {
		return ins.Op().String()
	}
	return fmt.Sprintf("%s(%s)", ins.Op(), strings.Join(parts, ", "))
}

func poolRef(p *Pool, idx int) string {
	if p == nil || idx < 0 || idx >= p.Len() {
		return fmt.Sprintf("#%d", idx)
	}
	return p.Get(idx).String()
}
