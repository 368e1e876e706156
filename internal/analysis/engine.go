package analysis

import (
	"github.com/tliron/commonlog"

	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

var log = commonlog.GetLogger("lazyjit.analysis")

// Analysis describes a forward dataflow problem. Transfer updates state in
// place to the state after ins.
type Analysis[S State[S]] interface {
	Name() string
	Initial(fn *ir.Function) S
	Transfer(state S, ins ir.Instruction)
}

// Order selects the worklist discipline. The fixed point does not depend on
// it, only the number of visits does.
type Order uint8

const (
	FIFO Order = iota
	LIFO
)

func (o Order) String() string {
	if o == LIFO {
		return "lifo"
	}
	return "fifo"
}

// Position selects which side of an instruction a query refers to
type Position uint8

const (
	Before Position = iota
	After
)

// DefaultMaxVisits bounds how often a single block may be processed
const DefaultMaxVisits = 1000

type options struct {
	order     Order
	maxVisits int
}

type Option func(*options)

func WithOrder(o Order) Option {
	return func(opts *options) { opts.order = o }
}

// WithMaxVisits sets the per-block visit bound. Exceeding it means the
// transfer function is not monotone and is reported as a violation.
func WithMaxVisits(n int) Option {
	return func(opts *options) {
		if n > 0 {
			opts.maxVisits = n
		}
	}
}

// Result holds the fixed point of an analysis. Entry and exit states are
// stored per block; states at instructions are recomputed on demand by
// replaying the block's transfer functions.
type Result[S State[S]] struct {
	fn       *ir.Function
	analysis Analysis[S]
	entry    map[ir.BlockID]S
	exit     map[ir.BlockID]S
	visits   int
}

// Run iterates a over fn until no block's exit state changes. A block's
// entry state is the join of the exit states of its already visited
// predecessors, joined with the initial state for the entry block.
func Run[S State[S]](fn *ir.Function, a Analysis[S], opts ...Option) *Result[S] {
	o := options{order: FIFO, maxVisits: DefaultMaxVisits}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Result[S]{
		fn:       fn,
		analysis: a,
		entry:    make(map[ir.BlockID]S),
		exit:     make(map[ir.BlockID]S),
	}
	preds := ir.Predecessors(fn)
	initial := a.Initial(fn)
	counts := make(map[ir.BlockID]int)

	work := newWorklist(o.order)
	work.add(fn.Entry)
	for !work.empty() {
		id := work.next()
		bb := fn.Block(id)
		if bb == nil {
			continue
		}
		counts[id]++
		r.visits++
		if counts[id] > o.maxVisits {
			errors.Violationf(errors.ErrorNonTermination,
				"%s: %s visited %d times in %s, transfer is not monotone",
				a.Name(), id, counts[id], fn.Name)
		}

		state, ok := r.merged(id, preds, initial)
		if !ok {
			continue
		}
		r.entry[id] = state.Clone()
		for _, ins := range bb.Instrs {
			a.Transfer(state, ins)
		}

		if old, seen := r.exit[id]; seen && old.Equal(state) {
			continue
		}
		r.exit[id] = state
		for _, s := range bb.Successors() {
			work.add(s)
		}
	}

	log.Debug("analysis converged",
		"analysis", a.Name(), "function", fn.Name, "blocks", len(r.exit), "visits", r.visits)
	return r
}

func (r *Result[S]) merged(id ir.BlockID, preds ir.Preds, initial S) (S, bool) {
	var (
		state S
		have  bool
	)
	if id == r.fn.Entry {
		state, have = initial.Clone(), true
	}
	for _, p := range preds.Of(id) {
		out, ok := r.exit[p]
		if !ok {
			continue
		}
		if !have {
			state, have = out.Clone(), true
			continue
		}
		state.MergeWith(out)
	}
	return state, have
}

// Reached reports whether the analysis reached block b
func (r *Result[S]) Reached(b ir.BlockID) bool {
	_, ok := r.entry[b]
	return ok
}

// Entry returns a copy of the state on entry to b
func (r *Result[S]) Entry(b ir.BlockID) (S, bool) {
	s, ok := r.entry[b]
	if !ok {
		return s, false
	}
	return s.Clone(), true
}

// Exit returns a copy of the state at the end of b
func (r *Result[S]) Exit(b ir.BlockID) (S, bool) {
	s, ok := r.exit[b]
	if !ok {
		return s, false
	}
	return s.Clone(), true
}

// At returns the state immediately before or after ins. ok is false when
// ins sits in a block the analysis never reached.
func (r *Result[S]) At(ins ir.Instruction, pos Position) (S, bool) {
	var zero S
	bb := ins.Block()
	errors.Assert(bb != nil, errors.ErrorStaleReference, "query at detached instruction %s", ins.Ref())
	in, ok := r.entry[bb.ID]
	if !ok {
		return zero, false
	}

	state := in.Clone()
	for _, x := range bb.Instrs {
		if x == ins && pos == Before {
			return state, true
		}
		r.analysis.Transfer(state, x)
		if x == ins {
			return state, true
		}
	}
	errors.Violationf(errors.ErrorStaleReference, "%s is not in %s", ins.Ref(), bb.ID)
	return zero, false
}

// Final joins the exit states of every reached block ending in return
func (r *Result[S]) Final() (S, bool) {
	var (
		state S
		have  bool
	)
	for _, bb := range r.fn.Blocks() {
		out, ok := r.exit[bb.ID]
		if !ok || !bb.IsExit() {
			continue
		}
		if last := bb.Last(); last == nil || last.Op() != ir.OpReturn {
			continue
		}
		if !have {
			state, have = out.Clone(), true
			continue
		}
		state.MergeWith(out)
	}
	return state, have
}

// Visits returns the total number of block visits it took to converge
func (r *Result[S]) Visits() int { return r.visits }

// Function returns the analysed function
func (r *Result[S]) Function() *ir.Function { return r.fn }

// worklist never holds a block twice
type worklist struct {
	order  Order
	items  []ir.BlockID
	queued map[ir.BlockID]bool
}

func newWorklist(order Order) *worklist {
	return &worklist{order: order, queued: make(map[ir.BlockID]bool)}
}

func (w *worklist) add(id ir.BlockID) {
	if w.queued[id] {
		return
	}
	w.queued[id] = true
	w.items = append(w.items, id)
}

func (w *worklist) empty() bool { return len(w.items) == 0 }

func (w *worklist) next() ir.BlockID {
	var id ir.BlockID
	if w.order == LIFO {
		id = w.items[len(w.items)-1]
		w.items = w.items[:len(w.items)-1]
	} else {
		id = w.items[0]
		w.items = w.items[1:]
	}
	delete(w.queued, id)
	return id
}
