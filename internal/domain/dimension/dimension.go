// Package dimension provides the polymorphic dimension taxonomy (time and
// region variants) and the canonical string each variant produces.
//
// The variant set is closed: every value is built by one of the New*
// constructors, which validate their input, so an "empty" dimension never
// reaches the catalog.
package dimension

import (
	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// Variant tags the concrete dimension type. Values match the storage type column.
type Variant string

const (
	VariantInstant       Variant = "instant"
	VariantInterval      Variant = "interval"
	VariantYearInterval  Variant = "year_interval"
	VariantMonthInterval Variant = "month_interval"
	VariantRegion        Variant = "region"
	VariantCountry       Variant = "country"
)

// IsTime reports whether v is one of the time variants.
func (v Variant) IsTime() bool {
	switch v {
	case VariantInstant, VariantInterval, VariantYearInterval, VariantMonthInterval:
		return true
	}
	return false
}

// IsTerritory reports whether v is one of the region variants.
func (v Variant) IsTerritory() bool {
	return v == VariantRegion || v == VariantCountry
}

// Dimension is implemented by every variant.
type Dimension interface {
	entity.Entity

	// ID returns the surrogate id (0 until registered).
	ID() id.Surrogate

	// Variant returns the concrete variant tag.
	Variant() Variant

	// CanonicalString is the deterministic join key used inside a Slice.
	CanonicalString() string
}

// Time is implemented by Instant, Interval, YearInterval and MonthInterval.
type Time interface {
	Dimension

	// TimeString renders the time value; CanonicalString delegates to it.
	TimeString() string
}

// Territory is implemented by Region and Country.
type Territory interface {
	Dimension

	UNCode() int

	// PartOfID is the parent region, if any.
	PartOfID() *id.Surrogate

	// WithPartOf returns a copy pointing at parent (nil clears it).
	WithPartOf(parent *id.Surrogate) Territory
}

// WithID returns a copy of d carrying the surrogate id.
func WithID(d Dimension, v id.Surrogate) Dimension {
	switch t := d.(type) {
	case Instant:
		t.id = v
		return t
	case Interval:
		t.id = v
		return t
	case YearInterval:
		t.id = v
		return t
	case MonthInterval:
		t.id = v
		return t
	case Region:
		t.id = v
		return t
	case Country:
		t.id = v
		return t
	}
	return d
}

// AsTime returns d as a Time when it is a time variant.
func AsTime(d Dimension) (Time, bool) {
	t, ok := d.(Time)
	return t, ok
}

// AsTerritory returns d as a Territory when it is a region variant.
func AsTerritory(d Dimension) (Territory, bool) {
	t, ok := d.(Territory)
	return t, ok
}

func dimensionKey(v id.Surrogate) string {
	return id.Format(v)
}

// Validate rejects zero-value variants that bypassed the constructors.
func Validate(d Dimension) error {
	if d == nil {
		return apperror.NewValidation("dimension is required")
	}
	var err error
	switch t := d.(type) {
	case Instant:
		_, err = NewInstant(t.timestamp)
	case Interval:
		err = checkBounds(t.start, t.end)
	case YearInterval:
		_, err = NewYearInterval(t.year)
	case MonthInterval:
		_, err = NewMonthInterval(t.month, t.year)
	case Region:
		_, err = NewRegion(t.unCode)
	case Country:
		_, err = NewCountry(t.iso2, t.iso3, t.uri, t.unCode)
	default:
		err = apperror.NewValidation("unsupported dimension variant").
			WithDetail("variant", string(d.Variant()))
	}
	return err
}
