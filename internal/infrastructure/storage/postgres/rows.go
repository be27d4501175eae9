package postgres

import (
	"fmt"
	"time"

	"landportal/internal/core/apperror"
	"landportal/internal/core/id"
	"landportal/internal/domain/dimension"
)

// dimensionRow is the single-table layout of every dimension variant; the
// type column selects which of the nullable columns are set.
type dimensionRow struct {
	ID        id.Surrogate      `db:"id"`
	Type      dimension.Variant `db:"type"`
	Timestamp *time.Time        `db:"timestamp"`
	StartTime *time.Time        `db:"start_time"`
	EndTime   *time.Time        `db:"end_time"`
	Year      *int              `db:"year"`
	Month     *int              `db:"month"`
	UNCode    *int              `db:"un_code"`
	ISO2      *string           `db:"iso2"`
	ISO3      *string           `db:"iso3"`
	FAOURI    *string           `db:"faouri"`
	PartOfID  *id.Surrogate     `db:"is_part_of_id"`
}

func dimensionToRow(d dimension.Dimension) dimensionRow {
	row := dimensionRow{ID: d.ID(), Type: d.Variant()}
	switch t := d.(type) {
	case dimension.Instant:
		row.Timestamp = ptr(t.Timestamp())
	case dimension.Interval:
		row.StartTime, row.EndTime = ptr(t.Start()), ptr(t.End())
	case dimension.YearInterval:
		row.StartTime, row.EndTime = ptr(t.Start()), ptr(t.End())
		row.Year = ptr(t.Year())
	case dimension.MonthInterval:
		row.StartTime, row.EndTime = ptr(t.Start()), ptr(t.End())
		row.Year, row.Month = ptr(t.Year()), ptr(t.Month())
	case dimension.Region:
		row.UNCode = ptr(t.UNCode())
		row.PartOfID = t.PartOfID()
	case dimension.Country:
		row.UNCode = ptr(t.UNCode())
		row.ISO2, row.ISO3, row.FAOURI = ptr(t.ISO2()), ptr(t.ISO3()), ptr(t.URI())
		row.PartOfID = t.PartOfID()
	}
	return row
}

func dimensionFromRow(row dimensionRow) (dimension.Dimension, error) {
	var (
		d   dimension.Dimension
		err error
	)
	switch row.Type {
	case dimension.VariantInstant:
		d, err = dimension.NewInstant(deref(row.Timestamp))
	case dimension.VariantInterval:
		d, err = dimension.NewInterval(deref(row.StartTime), deref(row.EndTime))
	case dimension.VariantYearInterval:
		d, err = dimension.NewYearInterval(deref(row.Year))
	case dimension.VariantMonthInterval:
		d, err = dimension.NewMonthInterval(deref(row.Month), deref(row.Year))
	case dimension.VariantRegion:
		var r dimension.Region
		r, err = dimension.NewRegion(deref(row.UNCode))
		d = r.WithPartOf(row.PartOfID)
	case dimension.VariantCountry:
		var c dimension.Country
		c, err = dimension.NewCountry(deref(row.ISO2), deref(row.ISO3), deref(row.FAOURI), deref(row.UNCode))
		d = c.WithPartOf(row.PartOfID)
	default:
		return nil, apperror.NewInternal(fmt.Errorf("dimension %d has unknown type %q", row.ID, row.Type))
	}
	if err != nil {
		return nil, err
	}
	return dimension.WithID(d, row.ID), nil
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
