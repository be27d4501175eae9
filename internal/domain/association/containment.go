package association

import (
	"cmp"
	"maps"
	"slices"
)

// Containment is a one-to-many relation: every child has at most one parent
// and each parent keeps its children in attachment order.
type Containment[P, C cmp.Ordered] struct {
	children map[P][]C
	parent   map[C]P
}

// NewContainment creates an empty relation.
func NewContainment[P, C cmp.Ordered]() *Containment[P, C] {
	return &Containment[P, C]{
		children: make(map[P][]C),
		parent:   make(map[C]P),
	}
}

// Attach appends c to p's children and points c at p in one step. A child
// attached elsewhere is moved. Returns the previous parent, if any.
func (x *Containment[P, C]) Attach(p P, c C) (prev P, moved bool) {
	if cur, ok := x.parent[c]; ok {
		if cur == p {
			return cur, false
		}
		x.Detach(c)
		prev, moved = cur, true
	}
	x.parent[c] = p
	x.children[p] = append(x.children[p], c)
	return prev, moved
}

// Detach removes c from its parent and reports whether it was attached.
func (x *Containment[P, C]) Detach(c C) bool {
	p, ok := x.parent[c]
	if !ok {
		return false
	}
	delete(x.parent, c)

	kids := x.children[p]
	if i := slices.Index(kids, c); i >= 0 {
		kids = slices.Delete(slices.Clone(kids), i, i+1)
	}
	if len(kids) == 0 {
		delete(x.children, p)
	} else {
		x.children[p] = kids
	}
	return true
}

// Parent returns the parent of c.
func (x *Containment[P, C]) Parent(c C) (P, bool) {
	p, ok := x.parent[c]
	return p, ok
}

// Children returns a copy of p's children in attachment order.
func (x *Containment[P, C]) Children(p P) []C {
	return slices.Clone(x.children[p])
}

// HasChildren reports whether p has at least one child.
func (x *Containment[P, C]) HasChildren(p P) bool {
	return len(x.children[p]) > 0
}

// Len returns the number of attached children.
func (x *Containment[P, C]) Len() int { return len(x.parent) }

// DetachAll removes every child of p and returns them.
func (x *Containment[P, C]) DetachAll(p P) []C {
	kids := x.children[p]
	for _, c := range kids {
		delete(x.parent, c)
	}
	delete(x.children, p)
	return kids
}

// Parents returns every parent with at least one child, sorted.
func (x *Containment[P, C]) Parents() []P {
	return sortedKeys(x.children)
}

// Clone returns an independent copy.
func (x *Containment[P, C]) Clone() *Containment[P, C] {
	children := make(map[P][]C, len(x.children))
	for p, kids := range x.children {
		children[p] = slices.Clone(kids)
	}
	return &Containment[P, C]{children: children, parent: maps.Clone(x.parent)}
}
