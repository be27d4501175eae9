package dimension

import (
	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// Region is a geographic area. Its canonical string is its surrogate id.
type Region struct {
	id     id.Surrogate
	unCode int
	partOf *id.Surrogate
}

// NewRegion creates a Region with an optional UN M49 code (0 when unknown).
func NewRegion(unCode int) (Region, error) {
	if unCode < 0 {
		return Region{}, apperror.NewValidation("un code must not be negative").
			WithDetail("field", "un_code").
			WithDetail("value", unCode)
	}
	return Region{unCode: unCode}, nil
}

func (r Region) ID() id.Surrogate        { return r.id }
func (r Region) Variant() Variant        { return VariantRegion }
func (r Region) EntityKind() entity.Kind { return entity.KindDimension }
func (r Region) Key() string             { return dimensionKey(r.id) }
func (r Region) UNCode() int             { return r.unCode }
func (r Region) PartOfID() *id.Surrogate { return copySurrogate(r.partOf) }
func (r Region) CanonicalString() string { return id.Format(r.id) }

// WithPartOf implements Territory.
func (r Region) WithPartOf(parent *id.Surrogate) Territory {
	r.partOf = copySurrogate(parent)
	return r
}

// Country is a Region identified by ISO codes.
type Country struct {
	id     id.Surrogate
	unCode int
	partOf *id.Surrogate
	iso2   string
	iso3   string
	uri    string
}

// NewCountry creates a Country. iso3 must be exactly three characters;
// iso2, when given, exactly two.
func NewCountry(iso2, iso3, uri string, unCode int) (Country, error) {
	if len(iso3) != 3 {
		return Country{}, apperror.NewValidation("iso3 must be exactly 3 characters").
			WithDetail("field", "iso3").
			WithDetail("value", iso3)
	}
	if iso2 != "" && len(iso2) != 2 {
		return Country{}, apperror.NewValidation("iso2 must be exactly 2 characters").
			WithDetail("field", "iso2").
			WithDetail("value", iso2)
	}
	if unCode < 0 {
		return Country{}, apperror.NewValidation("un code must not be negative").
			WithDetail("field", "un_code").
			WithDetail("value", unCode)
	}
	return Country{unCode: unCode, iso2: iso2, iso3: iso3, uri: uri}, nil
}

func (c Country) ID() id.Surrogate        { return c.id }
func (c Country) Variant() Variant        { return VariantCountry }
func (c Country) EntityKind() entity.Kind { return entity.KindDimension }
func (c Country) Key() string             { return dimensionKey(c.id) }
func (c Country) UNCode() int             { return c.unCode }
func (c Country) PartOfID() *id.Surrogate { return copySurrogate(c.partOf) }
func (c Country) ISO2() string            { return c.iso2 }
func (c Country) ISO3() string            { return c.iso3 }
func (c Country) URI() string             { return c.uri }
func (c Country) CanonicalString() string { return c.iso3 }

// WithPartOf implements Territory.
func (c Country) WithPartOf(parent *id.Surrogate) Territory {
	c.partOf = copySurrogate(parent)
	return c
}

func copySurrogate(p *id.Surrogate) *id.Surrogate {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
