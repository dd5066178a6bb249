package collections

import (
	"cmp"
	"fmt"
	"slices"
)

// Set is a generic set data structure using a map with zero-size values
type Set[T comparable] map[T]struct{}

// NewSet creates a new Set with the given initial values
func NewSet[T comparable](vs ...T) Set[T] {
	s := Set[T]{}
	s.Add(vs...)
	return s
}

// Add adds one or more values to the set
func (s Set[T]) Add(vs ...T) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

// Has checks if the set contains the given value
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Members returns all values in the set as a slice, in no particular order
func (s Set[T]) Members() []T {
	r := make([]T, 0, len(s))
	for v := range s {
		r = append(r, v)
	}
	return r
}

// String returns a string representation of the set
func (s Set[T]) String() string {
	return fmt.Sprintf("%v", s.Members())
}

// Sorted returns the members of s in ascending order
func Sorted[T cmp.Ordered](s Set[T]) []T {
	r := s.Members()
	slices.Sort(r)
	return r
}

// Ordered is a set that remembers the order in which values were first added.
// The zero value is ready to use.
type Ordered[T comparable] struct {
	index map[T]int
	items []T
}

// NewOrdered creates an Ordered set with the given initial values
func NewOrdered[T comparable](vs ...T) *Ordered[T] {
	o := &Ordered[T]{}
	o.Add(vs...)
	return o
}

// Add appends values that are not yet present; existing values keep their position
func (o *Ordered[T]) Add(vs ...T) {
	if o.index == nil {
		o.index = make(map[T]int)
	}
	for _, v := range vs {
		if _, ok := o.index[v]; ok {
			continue
		}
		o.index[v] = len(o.items)
		o.items = append(o.items, v)
	}
}

// Has checks if the set contains the given value
func (o *Ordered[T]) Has(v T) bool {
	_, ok := o.index[v]
	return ok
}

// Len returns the number of members
func (o *Ordered[T]) Len() int {
	return len(o.items)
}

// Members returns a copy of the members in insertion order
func (o *Ordered[T]) Members() []T {
	return slices.Clone(o.items)
}

// Filter returns a new Ordered set with the members for which keep returns true
func (o *Ordered[T]) Filter(keep func(T) bool) *Ordered[T] {
	r := &Ordered[T]{}
	for _, v := range o.items {
		if keep(v) {
			r.Add(v)
		}
	}
	return r
}
