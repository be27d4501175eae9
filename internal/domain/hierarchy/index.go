// Package hierarchy provides a self-referential parent relation over ids.
//
// Nodes point at their parent by id and the index keeps the reverse
// (children) view, so resolving an ancestor chain is a walk over a map,
// never a pointer chase. Index is not synchronized; its owner serializes
// access.
package hierarchy

import (
	"maps"
	"slices"

	"landportal/internal/core/apperror"
)

// RemovePolicy decides what happens to the children of a removed node.
type RemovePolicy int

const (
	// FailIfChildren refuses to remove a node that still has children.
	FailIfChildren RemovePolicy = iota

	// ReparentChildren re-points the children at the removed node's parent
	// (or makes them roots).
	ReparentChildren
)

// Index is an id-indexed forest.
type Index[K comparable] struct {
	relation string
	nodes    map[K]struct{}
	parent   map[K]K
	children map[K][]K
}

// New creates an empty index. relation names the edge in error details
// (e.g. "organization.is_part_of").
func New[K comparable](relation string) *Index[K] {
	return &Index[K]{
		relation: relation,
		nodes:    make(map[K]struct{}),
		parent:   make(map[K]K),
		children: make(map[K][]K),
	}
}

// Relation returns the edge name given at construction.
func (x *Index[K]) Relation() string { return x.relation }

// Add registers a root node. Adding an existing node is a no-op.
func (x *Index[K]) Add(k K) {
	x.nodes[k] = struct{}{}
}

// Has reports whether k is registered.
func (x *Index[K]) Has(k K) bool {
	_, ok := x.nodes[k]
	return ok
}

// Len returns the number of nodes.
func (x *Index[K]) Len() int { return len(x.nodes) }

// Parent returns the parent of k.
func (x *Index[K]) Parent(k K) (K, bool) {
	p, ok := x.parent[k]
	return p, ok
}

// Children returns the direct children of k in attachment order.
func (x *Index[K]) Children(k K) []K {
	return append([]K(nil), x.children[k]...)
}

// Ancestors returns the chain [k, parent(k), ..., root].
// A chain that revisits a node or outgrows the index fails with a cycle error.
func (x *Index[K]) Ancestors(k K) ([]K, error) {
	if !x.Has(k) {
		return nil, apperror.NewUnknownReference(x.relation, k)
	}

	maxDepth := len(x.nodes)
	seen := make(map[K]struct{}, 4)
	chain := make([]K, 0, 4)

	cur := k
	for {
		if _, dup := seen[cur]; dup || len(chain) > maxDepth {
			return nil, apperror.NewCycle(x.relation, k, cur).
				WithDetail("chain", chain)
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)

		p, ok := x.parent[cur]
		if !ok {
			return chain, nil
		}
		cur = p
	}
}

// Root returns the last element of k's ancestor chain.
func (x *Index[K]) Root(k K) (K, error) {
	chain, err := x.Ancestors(k)
	if err != nil {
		var zero K
		return zero, err
	}
	return chain[len(chain)-1], nil
}

// IsAncestor reports whether anc appears in k's ancestor chain (k included).
func (x *Index[K]) IsAncestor(anc, k K) (bool, error) {
	chain, err := x.Ancestors(k)
	if err != nil {
		return false, err
	}
	for _, n := range chain {
		if n == anc {
			return true, nil
		}
	}
	return false, nil
}

// CheckParent validates SetParent(k, candidate) without applying it.
func (x *Index[K]) CheckParent(k, candidate K) error {
	if !x.Has(k) {
		return apperror.NewUnknownReference(x.relation, k)
	}
	if !x.Has(candidate) {
		return apperror.NewUnknownReference(x.relation, candidate)
	}
	if k == candidate {
		return apperror.NewCycle(x.relation, k, candidate).
			WithDetail("reason", "self reference")
	}
	closes, err := x.IsAncestor(k, candidate)
	if err != nil {
		return err
	}
	if closes {
		return apperror.NewCycle(x.relation, k, candidate)
	}
	return nil
}

// SetParent points k at candidate. Self references and candidates whose
// chain already contains k are rejected and leave the index unchanged.
func (x *Index[K]) SetParent(k, candidate K) error {
	if err := x.CheckParent(k, candidate); err != nil {
		return err
	}
	if cur, ok := x.parent[k]; ok && cur == candidate {
		return nil
	}
	x.detach(k)
	x.parent[k] = candidate
	x.children[candidate] = append(x.children[candidate], k)
	return nil
}

// ClearParent makes k a root.
func (x *Index[K]) ClearParent(k K) {
	x.detach(k)
}

// Remove deletes k from the index according to policy and returns the
// children that were re-pointed.
func (x *Index[K]) Remove(k K, policy RemovePolicy) ([]K, error) {
	if !x.Has(k) {
		return nil, apperror.NewUnknownReference(x.relation, k)
	}

	kids := x.Children(k)
	if len(kids) > 0 && policy == FailIfChildren {
		return nil, apperror.NewIntegrity(x.relation, k, "node still has children").
			WithDetail("children", len(kids))
	}

	grand, hasGrand := x.parent[k]
	for _, c := range kids {
		delete(x.parent, c)
		if hasGrand {
			x.parent[c] = grand
			x.children[grand] = append(x.children[grand], c)
		}
	}
	delete(x.children, k)
	x.detach(k)
	delete(x.nodes, k)
	return kids, nil
}

func (x *Index[K]) detach(k K) {
	p, ok := x.parent[k]
	if !ok {
		return
	}
	delete(x.parent, k)
	siblings := x.children[p]
	for i, s := range siblings {
		if s == k {
			siblings = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	if len(siblings) == 0 {
		delete(x.children, p)
	} else {
		x.children[p] = siblings
	}
}

// Clone returns an independent copy of the index.
func (x *Index[K]) Clone() *Index[K] {
	children := make(map[K][]K, len(x.children))
	for p, kids := range x.children {
		children[p] = slices.Clone(kids)
	}
	return &Index[K]{
		relation: x.relation,
		nodes:    maps.Clone(x.nodes),
		parent:   maps.Clone(x.parent),
		children: children,
	}
}
