package indicator

import (
	"context"
	"maps"
	"sort"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// RelationKind tags an IndicatorRelationship.
type RelationKind string

const (
	// IsPartOf: the source indicator is a component of the target.
	IsPartOf RelationKind = "is_part_of"
	// Becomes: the source indicator was superseded by the target.
	Becomes RelationKind = "becomes"
)

// Relationship is a directed, typed lineage edge between two indicators.
// It is independent of compound membership.
type Relationship struct {
	ID       id.Surrogate `db:"id" json:"id"`
	Variant  RelationKind `db:"type" json:"type" validate:"required,oneof=is_part_of becomes"`
	SourceID string       `db:"source_id" json:"sourceId" validate:"required,max=255"`
	TargetID string       `db:"target_id" json:"targetId" validate:"required,max=255"`
}

func (r Relationship) EntityKind() entity.Kind { return entity.KindRelationship }
func (r Relationship) Key() string             { return id.Format(r.ID) }

// Validate implements entity.Validatable. Self loops are rejected as
// DUPLICATE_ENTRY.
func (r *Relationship) Validate(ctx context.Context) error {
	if err := entity.ValidateStruct("indicator relationship", r); err != nil {
		return err
	}
	if r.SourceID == r.TargetID {
		return apperror.NewDuplicate("indicator relationship", "target", r.TargetID).
			WithDetail("reason", "self loop")
	}
	return nil
}

type edgeKey struct {
	variant        RelationKind
	source, target string
}

// Relationships indexes lineage edges by id and by endpoints.
type Relationships struct {
	byID   map[id.Surrogate]Relationship
	byEdge map[edgeKey]id.Surrogate
}

// NewRelationships creates an empty index.
func NewRelationships() *Relationships {
	return &Relationships{
		byID:   make(map[id.Surrogate]Relationship),
		byEdge: make(map[edgeKey]id.Surrogate),
	}
}

// Clone returns an independent copy.
func (x *Relationships) Clone() *Relationships {
	return &Relationships{byID: maps.Clone(x.byID), byEdge: maps.Clone(x.byEdge)}
}

// Check validates r against the index without adding it.
func (x *Relationships) Check(ctx context.Context, r Relationship) error {
	if err := r.Validate(ctx); err != nil {
		return err
	}
	if existing, ok := x.byEdge[edgeKey{r.Variant, r.SourceID, r.TargetID}]; ok && existing != r.ID {
		return apperror.NewDuplicate("indicator relationship", "edge", r.SourceID+"->"+r.TargetID).
			WithDetail("type", string(r.Variant)).
			WithDetail("existing_id", existing)
	}
	return nil
}

// Add stores r. r.ID must already be assigned.
func (x *Relationships) Add(ctx context.Context, r Relationship) error {
	if err := x.Check(ctx, r); err != nil {
		return err
	}
	if old, ok := x.byID[r.ID]; ok {
		delete(x.byEdge, edgeKey{old.Variant, old.SourceID, old.TargetID})
	}
	x.byID[r.ID] = r
	x.byEdge[edgeKey{r.Variant, r.SourceID, r.TargetID}] = r.ID
	return nil
}

// Get returns the relationship with the given id.
func (x *Relationships) Get(relID id.Surrogate) (Relationship, bool) {
	r, ok := x.byID[relID]
	return r, ok
}

// Remove deletes the relationship with the given id.
func (x *Relationships) Remove(relID id.Surrogate) bool {
	r, ok := x.byID[relID]
	if !ok {
		return false
	}
	delete(x.byEdge, edgeKey{r.Variant, r.SourceID, r.TargetID})
	delete(x.byID, relID)
	return true
}

// From returns the edges leaving indicatorID ordered by id.
func (x *Relationships) From(indicatorID string) []Relationship {
	return x.filter(func(r Relationship) bool { return r.SourceID == indicatorID })
}

// To returns the edges entering indicatorID ordered by id.
func (x *Relationships) To(indicatorID string) []Relationship {
	return x.filter(func(r Relationship) bool { return r.TargetID == indicatorID })
}

// Involving returns every edge touching indicatorID.
func (x *Relationships) Involving(indicatorID string) []Relationship {
	return x.filter(func(r Relationship) bool {
		return r.SourceID == indicatorID || r.TargetID == indicatorID
	})
}

// All returns every edge ordered by id.
func (x *Relationships) All() []Relationship {
	return x.filter(func(Relationship) bool { return true })
}

func (x *Relationships) filter(keep func(Relationship) bool) []Relationship {
	var out []Relationship
	for _, r := range x.byID {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
