package analysis

import (
	"fmt"
	"slices"
	"strings"
)

// IntersectionSet is a set lattice ordered by reverse inclusion: joining
// two sets intersects them. Elements keep their insertion order so the most
// recently inserted survivor can be found with Last.
//
// The zero value is the unreached state, the identity of Join. A reached
// set starts out empty.
type IntersectionSet[T comparable] struct {
	reached bool
	items   []T
}

// NewIntersectionSet returns a reached, empty set
func NewIntersectionSet[T comparable](items ...T) IntersectionSet[T] {
	s := IntersectionSet[T]{reached: true}
	for _, x := range items {
		s.Insert(x)
	}
	return s
}

// Reached reports whether any path flowed into the set
func (s IntersectionSet[T]) Reached() bool { return s.reached }

func (s IntersectionSet[T]) Includes(x T) bool {
	return slices.Contains(s.items, x)
}

func (s IntersectionSet[T]) Len() int { return len(s.items) }

// Items returns the elements oldest first
func (s IntersectionSet[T]) Items() []T { return slices.Clone(s.items) }

// Last returns the most recently inserted element
func (s IntersectionSet[T]) Last() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// Insert adds x unless present and reports whether it was added
func (s *IntersectionSet[T]) Insert(x T) bool {
	s.reached = true
	if s.Includes(x) {
		return false
	}
	// copies may share the backing array, never append in place
	s.items = append(s.items[:len(s.items):len(s.items)], x)
	return true
}

// Clear empties the set
func (s *IntersectionSet[T]) Clear() {
	s.reached = true
	s.items = nil
}

// Join intersects s with o, keeping the order of s
func (s IntersectionSet[T]) Join(o IntersectionSet[T]) (IntersectionSet[T], bool) {
	if !o.reached {
		return s, false
	}
	if !s.reached {
		return IntersectionSet[T]{reached: true, items: slices.Clone(o.items)}, true
	}
	var kept []T
	for _, x := range s.items {
		if o.Includes(x) {
			kept = append(kept, x)
		}
	}
	if len(kept) == len(s.items) {
		return s, false
	}
	return IntersectionSet[T]{reached: true, items: kept}, true
}

// Equal compares membership; insertion order is not significant
func (s IntersectionSet[T]) Equal(o IntersectionSet[T]) bool {
	if s.reached != o.reached || len(s.items) != len(o.items) {
		return false
	}
	for _, x := range s.items {
		if !o.Includes(x) {
			return false
		}
	}
	return true
}

func (s IntersectionSet[T]) String() string {
	if !s.reached {
		return "unreached"
	}
	parts := make([]string, len(s.items))
	for i, x := range s.items {
		parts[i] = fmt.Sprint(x)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SetState adapts an IntersectionSet to the engine's mutable State
type SetState[T comparable] struct {
	Set IntersectionSet[T]
}

func (s *SetState[T]) Clone() *SetState[T] {
	return &SetState[T]{Set: IntersectionSet[T]{reached: s.Set.reached, items: slices.Clone(s.Set.items)}}
}

func (s *SetState[T]) MergeWith(o *SetState[T]) bool {
	res, changed := s.Set.Join(o.Set)
	s.Set = res
	return changed
}

func (s *SetState[T]) Equal(o *SetState[T]) bool { return s.Set.Equal(o.Set) }

func (s *SetState[T]) String() string { return s.Set.String() }
