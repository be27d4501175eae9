// Package dataset provides datasets, their licenses, slices and the
// observation fact rows.
package dataset

import (
	"context"
	"fmt"
	"strings"

	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// License describes the reuse terms of a dataset.
type License struct {
	ID          id.Surrogate `db:"id" json:"id"`
	Name        string       `db:"name" json:"name" validate:"required,max=50"`
	Description string       `db:"description" json:"description,omitempty" validate:"max=255"`
	Republish   bool         `db:"republish" json:"republish"`
	URL         string       `db:"url" json:"url,omitempty" validate:"omitempty,url,max=128"`
}

func (l License) EntityKind() entity.Kind { return entity.KindLicense }
func (l License) Key() string             { return id.Format(l.ID) }

// Validate implements entity.Validatable.
func (l *License) Validate(ctx context.Context) error {
	return entity.ValidateStruct("license", l)
}

// Dataset groups the slices and observations of one data source release.
type Dataset struct {
	ID           string        `db:"id" json:"id"`
	Frequency    string        `db:"sdmx_frequency" json:"sdmxFrequency,omitempty" validate:"max=20"`
	DataSourceID string        `db:"datasource_id" json:"datasourceId,omitempty"`
	LicenseID    *id.Surrogate `db:"license_id" json:"licenseId,omitempty"`
}

// New creates a dataset; the data source is set when it is attached.
func New(datasetID, frequency string) *Dataset {
	return &Dataset{ID: datasetID, Frequency: frequency}
}

func (d Dataset) EntityKind() entity.Kind { return entity.KindDataset }
func (d Dataset) Key() string             { return d.ID }

// Validate implements entity.Validatable.
func (d *Dataset) Validate(ctx context.Context) error {
	if err := id.ValidateExternal("dataset", d.ID); err != nil {
		return err
	}
	return entity.ValidateStruct("dataset", d)
}

// Slice is one (dataset, indicator, dimension value) combination.
type Slice struct {
	ID          string       `db:"id" json:"id"`
	IndicatorID string       `db:"indicator_id" json:"indicatorId" validate:"required,max=255"`
	DimensionID id.Surrogate `db:"dimension_id" json:"dimensionId" validate:"required"`
	DatasetID   string       `db:"dataset_id" json:"datasetId" validate:"required,max=255"`
}

func (s Slice) EntityKind() entity.Kind { return entity.KindSlice }
func (s Slice) Key() string             { return s.ID }

// Validate implements entity.Validatable.
func (s *Slice) Validate(ctx context.Context) error {
	if err := id.ValidateExternal("slice", s.ID); err != nil {
		return err
	}
	return entity.ValidateStruct("slice", s)
}

// Observation is the leaf fact row. Its id comes from the ingesting feed.
type Observation struct {
	ID            string        `db:"id" json:"id"`
	RefTimeID     *id.Surrogate `db:"ref_time_id" json:"refTimeId,omitempty"`
	IssuedID      *id.Surrogate `db:"issued_id" json:"issuedId,omitempty"`
	ComputationID *id.Surrogate `db:"computation_id" json:"computationId,omitempty"`
	GroupID       *id.Surrogate `db:"indicator_group_id" json:"indicatorGroupId,omitempty"`
	ValueID       id.Surrogate  `db:"value_id" json:"valueId" validate:"required"`
	IndicatorID   string        `db:"indicator_id" json:"indicatorId" validate:"required,max=255"`
	DatasetID     string        `db:"dataset_id" json:"datasetId" validate:"required,max=255"`
	RegionID      *id.Surrogate `db:"region_id" json:"regionId,omitempty"`
	SliceID       *string       `db:"slice_id" json:"sliceId,omitempty"`
	ProviderID    *string       `db:"provider_id" json:"providerId,omitempty"`
}

func (o Observation) EntityKind() entity.Kind { return entity.KindObservation }
func (o Observation) Key() string             { return o.ID }

// Validate implements entity.Validatable.
func (o *Observation) Validate(ctx context.Context) error {
	if err := id.ValidateExternal("observation", o.ID); err != nil {
		return err
	}
	return entity.ValidateStruct("observation", o)
}

func (o Observation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Observation id=%q indicator=%q dataset=%q value=%d", o.ID, o.IndicatorID, o.DatasetID, o.ValueID)
	writeOpt(&b, "ref_time", o.RefTimeID)
	writeOpt(&b, "issued", o.IssuedID)
	writeOpt(&b, "computation", o.ComputationID)
	writeOpt(&b, "region", o.RegionID)
	if o.SliceID != nil {
		fmt.Fprintf(&b, " slice=%q", *o.SliceID)
	}
	if o.ProviderID != nil {
		fmt.Fprintf(&b, " provider=%q", *o.ProviderID)
	}
	b.WriteString(">")
	return b.String()
}

func writeOpt(b *strings.Builder, name string, v *id.Surrogate) {
	if v != nil {
		fmt.Fprintf(b, " %s=%d", name, *v)
	}
}

// IndicatorLink is one row of the dataset/indicator membership set.
type IndicatorLink struct {
	DatasetID   string `db:"dataset_id" json:"datasetId"`
	IndicatorID string `db:"indicator_id" json:"indicatorId"`
}

func (l IndicatorLink) EntityKind() entity.Kind { return entity.KindMembership }

// Key is dataset|indicator.
func (l IndicatorLink) Key() string {
	return l.DatasetID + entity.KeySeparator + l.IndicatorID
}

// ParseIndicatorLinkKey splits a key built by IndicatorLink.Key.
func ParseIndicatorLinkKey(key string) (IndicatorLink, bool) {
	ds, ind, ok := strings.Cut(key, entity.KeySeparator)
	if !ok || ds == "" || ind == "" {
		return IndicatorLink{}, false
	}
	return IndicatorLink{DatasetID: ds, IndicatorID: ind}, true
}
