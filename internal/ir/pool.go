package ir

import (
	"fmt"
	"strconv"
)

// ConstKind classifies constant pool entries
type ConstKind uint8

const (
	KindSymbol ConstKind = iota
	KindNumber
	KindString
	KindLogical
	KindNull
	KindClosure
	KindBuiltin
	KindSpecial
)

var kindNames = [...]string{
	KindSymbol:  "symbol",
	KindNumber:  "number",
	KindString:  "string",
	KindLogical: "logical",
	KindNull:    "null",
	KindClosure: "closure",
	KindBuiltin: "builtin",
	KindSpecial: "special",
}

func (k ConstKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Const is one constant pool entry. Name is set for symbols and functions,
// Value for literals. Safe marks builtins that neither force promises nor
// have side effects.
type Const struct {
	Kind  ConstKind
	Name  string
	Value any
	Safe  bool
}

// IsFunction reports whether the constant is a function object
func (c Const) IsFunction() bool {
	return c.Kind == KindClosure || c.Kind == KindBuiltin || c.Kind == KindSpecial
}

// IsPrimitive reports whether the constant is a builtin or special primitive
func (c Const) IsPrimitive() bool {
	return c.Kind == KindBuiltin || c.Kind == KindSpecial
}

func (c Const) String() string {
	switch c.Kind {
	case KindSymbol:
		return c.Name
	case KindNumber:
		switch v := c.Value.(type) {
		case int:
			return strconv.Itoa(v)
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
		return fmt.Sprint(c.Value)
	case KindString:
		return strconv.Quote(fmt.Sprint(c.Value))
	case KindLogical:
		if b, _ := c.Value.(bool); b {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindBuiltin:
		if c.Safe {
			return fmt.Sprintf("@safe(%s)", c.Name)
		}
		return fmt.Sprintf("@builtin(%s)", c.Name)
	case KindClosure, KindSpecial:
		return fmt.Sprintf("@%s(%s)", c.Kind, c.Name)
	}
	return "?"
}

// Pool maps small integer indices to symbols and literals. Entries are
// interned, so equal constants share an index.
type Pool struct {
	entries []Const
	index   map[Const]int
}

func NewPool() *Pool {
	return &Pool{index: make(map[Const]int)}
}

// Insert interns c and returns its index
func (p *Pool) Insert(c Const) int {
	if i, ok := p.index[c]; ok {
		return i
	}
	i := len(p.entries)
	p.entries = append(p.entries, c)
	p.index[c] = i
	return i
}

// Symbol interns a symbol
func (p *Pool) Symbol(s Symbol) int {
	return p.Insert(Const{Kind: KindSymbol, Name: string(s)})
}

// Get returns the entry at i
func (p *Pool) Get(i int) Const {
	return p.entries[i]
}

// SymbolAt returns the symbol at i; ok is false for non-symbol entries
func (p *Pool) SymbolAt(i int) (Symbol, bool) {
	if i < 0 || i >= len(p.entries) || p.entries[i].Kind != KindSymbol {
		return "", false
	}
	return Symbol(p.entries[i].Name), true
}

// Len returns the number of entries
func (p *Pool) Len() int { return len(p.entries) }
