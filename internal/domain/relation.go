package domain

import (
	"slices"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/dimension"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/organization"
	"landportal/internal/domain/translation"
)

// Relation names a parent-to-children edge for LoadChildren.
type Relation string

const (
	RelOrganizationParts   Relation = "organization.parts"
	RelOrganizationSources Relation = "organization.sources"
	RelSourceDatasets      Relation = "datasource.datasets"
	RelSourceObservations  Relation = "datasource.observations"
	RelDatasetSlices       Relation = "dataset.slices"
	RelDatasetObservations Relation = "dataset.observations"
	RelDatasetIndicators   Relation = "dataset.indicators"
	RelIndicatorDatasets   Relation = "indicator.datasets"
	RelSliceObservations   Relation = "slice.observations"
	RelRegionObservations  Relation = "region.observations"
	RelRegionParts         Relation = "region.parts"
	RelCompoundMembers     Relation = "compound_indicator.members"
	RelTopicIndicators     Relation = "topic.indicators"
	RelIndicatorLineage    Relation = "indicator.relationships"
	RelTranslations        Relation = "translations"
)

// RelationSpec describes how a relation is stored.
//
// Field relations keep the parent key on the child row (Column); PointsTo
// extracts it. Link relations (many-to-many) go through rows of kind Link
// whose ends LinkEnds returns as (parent key, child key).
type RelationSpec struct {
	Parent entity.Kind // empty: any kind (translations)
	Child  entity.Kind
	Column string

	PointsTo func(child entity.Entity) (entity.Ref, bool)

	Link     entity.Kind
	LinkEnds func(link entity.Entity) (parentKey, childKey string, ok bool)
}

// IsLink reports whether the relation is stored as link rows.
func (s RelationSpec) IsLink() bool { return s.Link != "" }

// Matches reports whether child points at parent through a field relation.
func (s RelationSpec) Matches(parent, child entity.Entity) bool {
	if s.PointsTo == nil || child.EntityKind() != s.Child {
		return false
	}
	ref, ok := s.PointsTo(child)
	return ok && ref == entity.RefOf(parent)
}

var relations = map[Relation]RelationSpec{
	RelOrganizationParts: {
		Parent: entity.KindOrganization, Child: entity.KindOrganization, Column: "is_part_of_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			o, ok := e.(organization.Organization)
			if !ok || o.PartOfID == nil {
				return entity.Ref{}, false
			}
			return entity.Ref{Kind: entity.KindOrganization, Key: *o.PartOfID}, true
		},
	},
	RelOrganizationSources: {
		Parent: entity.KindOrganization, Child: entity.KindDataSource, Column: "organization_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			d, ok := e.(organization.DataSource)
			return strRef(entity.KindOrganization, d.OrganizationID, ok)
		},
	},
	RelSourceDatasets: {
		Parent: entity.KindDataSource, Child: entity.KindDataset, Column: "datasource_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			d, ok := e.(dataset.Dataset)
			return strRef(entity.KindDataSource, d.DataSourceID, ok)
		},
	},
	RelSourceObservations: {
		Parent: entity.KindDataSource, Child: entity.KindObservation, Column: "provider_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			o, ok := e.(dataset.Observation)
			if !ok || o.ProviderID == nil {
				return entity.Ref{}, false
			}
			return entity.Ref{Kind: entity.KindDataSource, Key: *o.ProviderID}, true
		},
	},
	RelDatasetSlices: {
		Parent: entity.KindDataset, Child: entity.KindSlice, Column: "dataset_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			s, ok := e.(dataset.Slice)
			return strRef(entity.KindDataset, s.DatasetID, ok)
		},
	},
	RelDatasetObservations: {
		Parent: entity.KindDataset, Child: entity.KindObservation, Column: "dataset_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			o, ok := e.(dataset.Observation)
			return strRef(entity.KindDataset, o.DatasetID, ok)
		},
	},
	RelSliceObservations: {
		Parent: entity.KindSlice, Child: entity.KindObservation, Column: "slice_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			o, ok := e.(dataset.Observation)
			if !ok || o.SliceID == nil {
				return entity.Ref{}, false
			}
			return entity.Ref{Kind: entity.KindSlice, Key: *o.SliceID}, true
		},
	},
	RelRegionObservations: {
		Parent: entity.KindDimension, Child: entity.KindObservation, Column: "region_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			o, ok := e.(dataset.Observation)
			return surrogateRef(entity.KindDimension, o.RegionID, ok)
		},
	},
	RelRegionParts: {
		Parent: entity.KindDimension, Child: entity.KindDimension, Column: "is_part_of_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			d, ok := e.(dimension.Dimension)
			if !ok {
				return entity.Ref{}, false
			}
			t, ok := dimension.AsTerritory(d)
			if !ok {
				return entity.Ref{}, false
			}
			return surrogateRef(entity.KindDimension, t.PartOfID(), true)
		},
	},
	RelCompoundMembers: {
		Parent: entity.KindIndicator, Child: entity.KindIndicator, Column: "compound_indicator_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			i, ok := e.(indicator.Indicator)
			if !ok || i.CompoundID == nil {
				return entity.Ref{}, false
			}
			return entity.Ref{Kind: entity.KindIndicator, Key: *i.CompoundID}, true
		},
	},
	RelTopicIndicators: {
		Parent: entity.KindTopic, Child: entity.KindIndicator, Column: "topic_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			i, ok := e.(indicator.Indicator)
			if !ok || i.TopicID == nil {
				return entity.Ref{}, false
			}
			return entity.Ref{Kind: entity.KindTopic, Key: *i.TopicID}, true
		},
	},
	RelIndicatorLineage: {
		Parent: entity.KindIndicator, Child: entity.KindRelationship, Column: "source_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			r, ok := e.(indicator.Relationship)
			return strRef(entity.KindIndicator, r.SourceID, ok)
		},
	},
	RelTranslations: {
		Child: entity.KindTranslation, Column: "entity_id",
		PointsTo: func(e entity.Entity) (entity.Ref, bool) {
			r, ok := e.(translation.Record)
			return strRef(r.Owner, r.EntityID, ok)
		},
	},
	RelDatasetIndicators: {
		Parent: entity.KindDataset, Child: entity.KindIndicator, Link: entity.KindMembership,
		LinkEnds: func(e entity.Entity) (string, string, bool) {
			l, ok := e.(dataset.IndicatorLink)
			return l.DatasetID, l.IndicatorID, ok
		},
	},
	RelIndicatorDatasets: {
		Parent: entity.KindIndicator, Child: entity.KindDataset, Link: entity.KindMembership,
		LinkEnds: func(e entity.Entity) (string, string, bool) {
			l, ok := e.(dataset.IndicatorLink)
			return l.IndicatorID, l.DatasetID, ok
		},
	},
}

// Relations returns every known relation, sorted by name.
func Relations() []Relation {
	out := make([]Relation, 0, len(relations))
	for rel := range relations {
		out = append(out, rel)
	}
	slices.Sort(out)
	return out
}

// Spec returns the storage description of rel. An unknown relation, or a
// parent of the wrong kind, is a VALIDATION_ERROR.
func Spec(rel Relation, parent entity.Entity) (RelationSpec, error) {
	spec, ok := relations[rel]
	if !ok {
		return RelationSpec{}, apperror.NewValidation("unknown relation").
			WithDetail("relation", string(rel))
	}
	if parent != nil && spec.Parent != "" && parent.EntityKind() != spec.Parent {
		return RelationSpec{}, apperror.NewValidation("relation does not start at this entity kind").
			WithDetail("relation", string(rel)).
			WithDetail("kind", string(parent.EntityKind()))
	}
	return spec, nil
}

func strRef(kind entity.Kind, key string, ok bool) (entity.Ref, bool) {
	if !ok || key == "" {
		return entity.Ref{}, false
	}
	return entity.Ref{Kind: kind, Key: key}, true
}

func surrogateRef(kind entity.Kind, v *id.Surrogate, ok bool) (entity.Ref, bool) {
	if !ok || v == nil {
		return entity.Ref{}, false
	}
	return entity.Ref{Kind: kind, Key: id.Format(*v)}, true
}
