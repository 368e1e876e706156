package analysis

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"

	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

// AbstractState models the interpreter state at one program point: the
// operand stack and the environment of the function's frame. The stack top
// is Peek(0). Symbols never stored read as the bottom element of L.
type AbstractState[L Lattice[L]] struct {
	stack []L
	env   map[ir.Symbol]L
}

func NewAbstractState[L Lattice[L]]() *AbstractState[L] {
	return &AbstractState[L]{env: make(map[ir.Symbol]L)}
}

// Depth returns the number of stack slots
func (s *AbstractState[L]) Depth() int { return len(s.stack) }

func (s *AbstractState[L]) Push(v L) {
	s.stack = append(s.stack, v)
}

func (s *AbstractState[L]) Pop() L {
	errors.Assert(len(s.stack) > 0, errors.ErrorStackUnderflow, "pop from an empty abstract stack")
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

// PopN discards n slots
func (s *AbstractState[L]) PopN(n int) {
	errors.Assert(n >= 0 && n <= len(s.stack), errors.ErrorStackUnderflow,
		"pop %d from an abstract stack of depth %d", n, len(s.stack))
	s.stack = s.stack[:len(s.stack)-n]
}

// Peek returns the slot i positions below the top
func (s *AbstractState[L]) Peek(i int) L {
	return s.stack[s.slot(i)]
}

// SetPeek overwrites the slot i positions below the top
func (s *AbstractState[L]) SetPeek(i int, v L) {
	s.stack[s.slot(i)] = v
}

func (s *AbstractState[L]) Top() L { return s.Peek(0) }

func (s *AbstractState[L]) slot(i int) int {
	errors.Assert(i >= 0 && i < len(s.stack), errors.ErrorStackUnderflow,
		"stack slot %d out of range for depth %d", i, len(s.stack))
	return len(s.stack) - 1 - i
}

// Get returns the value bound to sym, or bottom
func (s *AbstractState[L]) Get(sym ir.Symbol) L {
	return s.env[sym]
}

func (s *AbstractState[L]) Set(sym ir.Symbol, v L) {
	s.env[sym] = v
}

// Symbols returns the bound symbols in sorted order
func (s *AbstractState[L]) Symbols() []ir.Symbol {
	return sortedKeys(s.env)
}

// MergeAllEnv joins v into every binding. Used when an instruction may
// write any variable through reflection.
func (s *AbstractState[L]) MergeAllEnv(v L) {
	for sym, old := range s.env {
		if res, changed := old.Join(v); changed {
			s.env[sym] = res
		}
	}
}

func (s *AbstractState[L]) Clone() *AbstractState[L] {
	c := &AbstractState[L]{
		stack: slices.Clone(s.stack),
		env:   make(map[ir.Symbol]L, len(s.env)),
	}
	for k, v := range s.env {
		c.env[k] = v
	}
	return c
}

// MergeWith joins o into s slot by slot and binding by binding. Both states
// must have the same stack depth.
func (s *AbstractState[L]) MergeWith(o *AbstractState[L]) bool {
	errors.Assert(len(s.stack) == len(o.stack), errors.ErrorStackMismatch,
		"merging abstract stacks of depth %d and %d", len(s.stack), len(o.stack))

	changed := false
	for i := range s.stack {
		if res, ok := s.stack[i].Join(o.stack[i]); ok {
			s.stack[i] = res
			changed = true
		}
	}
	for _, sym := range sortedKeys(o.env) {
		if res, ok := s.env[sym].Join(o.env[sym]); ok {
			s.env[sym] = res
			changed = true
		}
	}
	return changed
}

func (s *AbstractState[L]) Equal(o *AbstractState[L]) bool {
	if len(s.stack) != len(o.stack) {
		return false
	}
	for i := range s.stack {
		if !s.stack[i].Equal(o.stack[i]) {
			return false
		}
	}
	for sym, v := range s.env {
		if !v.Equal(o.env[sym]) {
			return false
		}
	}
	for sym, v := range o.env {
		if _, ok := s.env[sym]; !ok && !v.Equal(s.env[sym]) {
			return false
		}
	}
	return true
}

func (s *AbstractState[L]) String() string {
	var sb strings.Builder
	sb.WriteString("stack [")
	for i := range s.stack {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, s.Peek(i))
	}
	sb.WriteString("] env {")
	for i, sym := range s.Symbols() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", sym, s.env[sym])
	}
	sb.WriteString("}")
	return sb.String()
}

func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
