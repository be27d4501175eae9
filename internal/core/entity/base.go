// Package entity provides the base contracts shared by all catalog entities.
package entity

import (
	"context"
)

// Kind names an entity family. It doubles as the storage collection name.
type Kind string

const (
	KindLanguage        Kind = "language"
	KindOrganization    Kind = "organization"
	KindDataSource      Kind = "datasource"
	KindDataset         Kind = "dataset"
	KindLicense         Kind = "license"
	KindSlice           Kind = "slice"
	KindObservation     Kind = "observation"
	KindIndicator       Kind = "indicator"
	KindRelationship    Kind = "indicator_relationship"
	KindIndicatorGroup  Kind = "indicator_group"
	KindTopic           Kind = "topic"
	KindDimension       Kind = "dimension"
	KindMeasurementUnit Kind = "measurement_unit"
	KindComputation     Kind = "computation"
	KindValue           Kind = "value"
	KindTranslation     Kind = "translation"
	KindMembership      Kind = "dataset_indicator"
)

// Entity is anything the storage collaborator can load and save.
type Entity interface {
	// EntityKind returns the entity family.
	EntityKind() Kind

	// Key returns the primary key rendered as a string. Composite keys
	// (translations, memberships) are joined with KeySeparator.
	Key() string
}

// KeySeparator joins the parts of a composite key.
const KeySeparator = "|"

// Ref identifies an entity without holding it.
type Ref struct {
	Kind Kind
	Key  string
}

// RefOf returns the reference of e.
func RefOf(e Entity) Ref {
	return Ref{Kind: e.EntityKind(), Key: e.Key()}
}

// String implements fmt.Stringer.
func (r Ref) String() string {
	return string(r.Kind) + ":" + r.Key
}

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without storage access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}
