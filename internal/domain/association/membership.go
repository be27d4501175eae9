// Package association provides the two link primitives the catalog uses to
// keep both sides of a relationship consistent: a many-to-many Membership
// and a one-to-many Containment. Each primitive owns the only copy of its
// edges, so the two directional views can never disagree. Neither type is
// synchronized; the owning catalog serializes access.
package association

import (
	"cmp"
	"maps"
	"slices"
)

// Membership is a set of (left, right) pairs with both directional views
// derived from it.
type Membership[L, R cmp.Ordered] struct {
	rights map[L]map[R]struct{}
	lefts  map[R]map[L]struct{}
	size   int
}

// NewMembership creates an empty set.
func NewMembership[L, R cmp.Ordered]() *Membership[L, R] {
	return &Membership[L, R]{
		rights: make(map[L]map[R]struct{}),
		lefts:  make(map[R]map[L]struct{}),
	}
}

// Link adds (l, r) if absent and reports whether it was added.
func (m *Membership[L, R]) Link(l L, r R) bool {
	if m.Has(l, r) {
		return false
	}
	addTo(m.rights, l, r)
	addTo(m.lefts, r, l)
	m.size++
	return true
}

// Unlink removes (l, r) and reports whether it was present.
func (m *Membership[L, R]) Unlink(l L, r R) bool {
	if !m.Has(l, r) {
		return false
	}
	removeFrom(m.rights, l, r)
	removeFrom(m.lefts, r, l)
	m.size--
	return true
}

// Has reports whether (l, r) is linked.
func (m *Membership[L, R]) Has(l L, r R) bool {
	_, ok := m.rights[l][r]
	return ok
}

// Rights returns the sorted right-hand ids linked to l.
func (m *Membership[L, R]) Rights(l L) []R { return sortedKeys(m.rights[l]) }

// Lefts returns the sorted left-hand ids linked to r.
func (m *Membership[L, R]) Lefts(r R) []L { return sortedKeys(m.lefts[r]) }

// Len returns the number of pairs.
func (m *Membership[L, R]) Len() int { return m.size }

// UnlinkLeft removes every pair of l and returns the right-hand ids.
func (m *Membership[L, R]) UnlinkLeft(l L) []R {
	rs := m.Rights(l)
	for _, r := range rs {
		m.Unlink(l, r)
	}
	return rs
}

// UnlinkRight removes every pair of r and returns the left-hand ids.
func (m *Membership[L, R]) UnlinkRight(r R) []L {
	ls := m.Lefts(r)
	for _, l := range ls {
		m.Unlink(l, r)
	}
	return ls
}

// Pair is one membership edge.
type Pair[L, R cmp.Ordered] struct {
	Left  L
	Right R
}

// Pairs returns every edge ordered by left then right.
func (m *Membership[L, R]) Pairs() []Pair[L, R] {
	out := make([]Pair[L, R], 0, m.size)
	for _, l := range sortedKeys(m.rights) {
		for _, r := range m.Rights(l) {
			out = append(out, Pair[L, R]{Left: l, Right: r})
		}
	}
	return out
}

// Clone returns an independent copy.
func (m *Membership[L, R]) Clone() *Membership[L, R] {
	return &Membership[L, R]{
		rights: cloneSets(m.rights),
		lefts:  cloneSets(m.lefts),
		size:   m.size,
	}
}

func cloneSets[K, V cmp.Ordered](m map[K]map[V]struct{}) map[K]map[V]struct{} {
	out := make(map[K]map[V]struct{}, len(m))
	for k, set := range m {
		out[k] = maps.Clone(set)
	}
	return out
}

func addTo[K, V cmp.Ordered](m map[K]map[V]struct{}, k K, v V) {
	set, ok := m[k]
	if !ok {
		set = make(map[V]struct{})
		m[k] = set
	}
	set[v] = struct{}{}
}

func removeFrom[K, V cmp.Ordered](m map[K]map[V]struct{}, k K, v V) {
	set := m[k]
	delete(set, v)
	if len(set) == 0 {
		delete(m, k)
	}
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
