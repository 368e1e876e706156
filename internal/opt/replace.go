package opt

import (
	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

// Replacements records which checkpoint took over from each removed one.
// Chains are resolved to their final survivor and compressed on the way.
type Replacements struct {
	next map[*ir.Checkpoint]*ir.Checkpoint
}

func NewReplacements() *Replacements {
	return &Replacements{next: make(map[*ir.Checkpoint]*ir.Checkpoint)}
}

// Record notes that old is replaced by repl
func (r *Replacements) Record(old, repl *ir.Checkpoint) {
	errors.Assert(r.Resolve(repl) != old, errors.ErrorReplacementCycle,
		"replacing %s with %s closes a cycle", old.Ref(), repl.Ref())
	r.next[old] = repl
}

// Resolve returns the checkpoint that finally stands in for cp, which is
// cp itself when it was never replaced
func (r *Replacements) Resolve(cp *ir.Checkpoint) *ir.Checkpoint {
	root := cp
	for {
		n, ok := r.next[root]
		if !ok {
			break
		}
		root = n
	}
	for cp != root {
		n := r.next[cp]
		r.next[cp] = root
		cp = n
	}
	return root
}
