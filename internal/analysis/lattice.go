// Package analysis holds the forward dataflow engine and the abstract
// domains the optimizer reasons with.
//
// An analysis pairs a State type with a transfer function over single
// instructions. Run iterates the transfer function over a function's CFG
// to a fixed point and returns a Result that can be queried at any
// instruction.
package analysis

import "fmt"

// Lattice is an element of a join-semilattice. Join returns the least upper
// bound of the receiver and o together with whether it differs from the
// receiver. The zero value of every Lattice used in an AbstractState must
// be its bottom element.
type Lattice[L any] interface {
	Join(o L) (L, bool)
	Equal(o L) bool
}

// State is the per-program-point value an analysis propagates. MergeWith
// joins o into the receiver in place and reports whether it changed.
type State[S any] interface {
	Clone() S
	MergeWith(o S) bool
	Equal(o S) bool
}

// Bool3 is a three-valued truth: no, maybe, yes
type Bool3 uint8

const (
	No Bool3 = iota
	Maybe
	Yes
)

func (b Bool3) String() string {
	switch b {
	case No:
		return "no"
	case Maybe:
		return "maybe"
	case Yes:
		return "yes"
	}
	return fmt.Sprintf("Bool3(%d)", uint8(b))
}

// Join keeps equal values and weakens differing ones to Maybe
func (b Bool3) Join(o Bool3) (Bool3, bool) {
	if b == o {
		return b, false
	}
	if b == Maybe {
		return b, false
	}
	return Maybe, true
}

func (b Bool3) Equal(o Bool3) bool { return b == o }
