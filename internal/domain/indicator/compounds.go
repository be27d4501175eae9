package indicator

import (
	"maps"

	"landportal/internal/core/apperror"
	"landportal/internal/domain/hierarchy"
)

const memberRelation = "compound_indicator.members"

// Compounds resolves compound membership. Each indicator belongs to at most
// one compound; the edge is stored on the member only and the forward view
// (members of a compound) is derived from the index.
type Compounds struct {
	edges    *hierarchy.Index[string]
	compound map[string]bool
}

// NewCompounds creates an empty resolver.
func NewCompounds() *Compounds {
	return &Compounds{
		edges:    hierarchy.New[string](memberRelation),
		compound: make(map[string]bool),
	}
}

// Clone returns an independent copy.
func (c *Compounds) Clone() *Compounds {
	return &Compounds{edges: c.edges.Clone(), compound: maps.Clone(c.compound)}
}

// Register adds an indicator or updates its variant. A compound that still
// has members cannot become plain.
func (c *Compounds) Register(indicatorID string, isCompound bool) error {
	if c.edges.Has(indicatorID) && !isCompound && len(c.edges.Children(indicatorID)) > 0 {
		return apperror.NewIntegrity("compound indicator", indicatorID, "compound indicator still has members")
	}
	c.edges.Add(indicatorID)
	c.compound[indicatorID] = isCompound
	return nil
}

// IsCompound reports whether indicatorID is registered as a compound.
func (c *Compounds) IsCompound(indicatorID string) bool {
	return c.compound[indicatorID]
}

// CheckMember validates AddMember(compoundID, candidateID) without applying it.
func (c *Compounds) CheckMember(compoundID, candidateID string) error {
	if !c.edges.Has(compoundID) {
		return apperror.NewUnknownReference("indicator", compoundID)
	}
	if !c.edges.Has(candidateID) {
		return apperror.NewUnknownReference("indicator", candidateID)
	}
	if !c.compound[compoundID] {
		return apperror.NewValidation("members can only be added to a compound indicator").
			WithDetail("id", compoundID)
	}
	// candidate aggregating compound (transitively) means candidate is already
	// in compound's chain of containing compounds.
	return c.edges.CheckParent(candidateID, compoundID)
}

// AddMember makes candidateID a member of compoundID, detaching it from any
// previous compound. A candidate that (transitively) aggregates compoundID is
// rejected with CYCLE_DETECTED and nothing changes.
func (c *Compounds) AddMember(compoundID, candidateID string) error {
	if err := c.CheckMember(compoundID, candidateID); err != nil {
		return err
	}
	return c.edges.SetParent(candidateID, compoundID)
}

// RemoveMember detaches memberID from its compound.
func (c *Compounds) RemoveMember(memberID string) {
	c.edges.ClearParent(memberID)
}

// CompoundOf returns the compound memberID belongs to.
func (c *Compounds) CompoundOf(memberID string) (string, bool) {
	return c.edges.Parent(memberID)
}

// Members returns the direct members of compoundID.
func (c *Compounds) Members(compoundID string) []string {
	return c.edges.Children(compoundID)
}

// TransitiveMembers returns every indicator aggregated by compoundID,
// breadth first.
func (c *Compounds) TransitiveMembers(compoundID string) []string {
	var out []string
	queue := c.edges.Children(compoundID)
	seen := map[string]struct{}{compoundID: {}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
		queue = append(queue, c.edges.Children(cur)...)
	}
	return out
}

// Containers returns the chain of compounds that (transitively) aggregate
// indicatorID, nearest first.
func (c *Compounds) Containers(indicatorID string) ([]string, error) {
	chain, err := c.edges.Ancestors(indicatorID)
	if err != nil {
		return nil, err
	}
	return chain[1:], nil
}

// Remove unregisters indicatorID. A compound with members is an integrity
// violation; a member is detached from its compound first.
func (c *Compounds) Remove(indicatorID string) error {
	if _, err := c.edges.Remove(indicatorID, hierarchy.FailIfChildren); err != nil {
		return err
	}
	delete(c.compound, indicatorID)
	return nil
}
