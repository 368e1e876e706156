package ir

import (
	"cmp"
	"slices"
)

// Loop is a natural loop: the header plus every block that reaches a back
// edge into the header without passing through it
type Loop struct {
	Header BlockID
	Body   []BlockID // sorted, header included
}

// Contains reports whether b belongs to the loop
func (l *Loop) Contains(b BlockID) bool {
	return slices.Contains(l.Body, b)
}

// Loops lists the natural loops of fn, one per header, ordered by header
// id. Loops sharing a header are merged.
func Loops(fn *Function, dom *DomTree) []*Loop {
	preds := Predecessors(fn)
	byHeader := make(map[BlockID]map[BlockID]bool)
	for _, id := range ReversePostorder(fn) {
		for _, s := range fn.Block(id).Successors() {
			if !dom.Dominates(s, id) {
				continue
			}
			body := byHeader[s]
			if body == nil {
				body = map[BlockID]bool{s: true}
				byHeader[s] = body
			}
			work := []BlockID{id}
			for len(work) > 0 {
				b := work[len(work)-1]
				work = work[:len(work)-1]
				if body[b] {
					continue
				}
				body[b] = true
				work = append(work, preds.Of(b)...)
			}
		}
	}

	loops := make([]*Loop, 0, len(byHeader))
	for h, body := range byHeader {
		l := &Loop{Header: h}
		for b := range body {
			l.Body = append(l.Body, b)
		}
		slices.Sort(l.Body)
		loops = append(loops, l)
	}
	slices.SortFunc(loops, func(a, b *Loop) int { return cmp.Compare(a.Header, b.Header) })
	return loops
}

// LoopOf returns the innermost loop containing b, or nil
func LoopOf(loops []*Loop, b BlockID) *Loop {
	var best *Loop
	for _, l := range loops {
		if l.Contains(b) && (best == nil || len(l.Body) < len(best.Body)) {
			best = l
		}
	}
	return best
}
