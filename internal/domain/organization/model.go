// Package organization provides data publishers and their data sources.
package organization

import (
	"context"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// Organization publishes data sources. Organizations nest through PartOfID;
// the catalog keeps the chain acyclic.
type Organization struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name" validate:"max=128"`
	URL      string  `db:"url" json:"url,omitempty" validate:"omitempty,url,max=255"`
	PartOfID *string `db:"is_part_of_id" json:"isPartOfId,omitempty"`
}

// New creates an organization without a parent.
func New(orgID, name string) *Organization {
	return &Organization{ID: orgID, Name: name}
}

func (o Organization) EntityKind() entity.Kind { return entity.KindOrganization }
func (o Organization) Key() string             { return o.ID }

// Validate implements entity.Validatable.
func (o *Organization) Validate(ctx context.Context) error {
	if err := id.ValidateExternal("organization", o.ID); err != nil {
		return err
	}
	if o.PartOfID != nil && *o.PartOfID == o.ID {
		return apperror.NewCycle("organization.is_part_of", o.ID, o.ID).
			WithDetail("reason", "self reference")
	}
	return entity.ValidateStruct("organization", o)
}

// DataSource is a feed published by an organization.
type DataSource struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name" validate:"max=128"`
	OrganizationID string `db:"organization_id" json:"organizationId,omitempty"`
}

// NewDataSource creates a data source; the owner is set when it is attached.
func NewDataSource(sourceID, name string) *DataSource {
	return &DataSource{ID: sourceID, Name: name}
}

func (d DataSource) EntityKind() entity.Kind { return entity.KindDataSource }
func (d DataSource) Key() string             { return d.ID }

// Validate implements entity.Validatable.
func (d *DataSource) Validate(ctx context.Context) error {
	if err := id.ValidateExternal("data source", d.ID); err != nil {
		return err
	}
	return entity.ValidateStruct("data source", d)
}
