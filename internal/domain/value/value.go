// Package value provides the small immutable records attached to
// indicators and observations: measurement units, computations and
// observed values.
package value

import (
	"context"

	"github.com/shopspring/decimal"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// MeasurementUnit describes the unit an indicator is measured in.
// Two units are equal when their names are equal.
type MeasurementUnit struct {
	ID id.Surrogate `db:"id" json:"id"`

	// Name is the display and identity name (e.g. "km2").
	Name string `db:"name" json:"name" validate:"required,max=20"`

	// ConvertibleTo names the unit Factor converts into (optional).
	ConvertibleTo string `db:"convertible_to" json:"convertibleTo,omitempty" validate:"max=20"`

	// Factor multiplies a quantity in this unit to obtain ConvertibleTo.
	Factor decimal.Decimal `db:"factor" json:"factor"`
}

// NewMeasurementUnit creates a unit with no conversion.
func NewMeasurementUnit(name string) *MeasurementUnit {
	return &MeasurementUnit{Name: name, Factor: decimal.NewFromInt(1)}
}

func (u MeasurementUnit) EntityKind() entity.Kind { return entity.KindMeasurementUnit }
func (u MeasurementUnit) Key() string             { return id.Format(u.ID) }

// Equal compares by name.
func (u MeasurementUnit) Equal(other MeasurementUnit) bool {
	return u.Name == other.Name
}

// Validate implements entity.Validatable.
func (u *MeasurementUnit) Validate(ctx context.Context) error {
	if err := entity.ValidateStruct("measurement unit", u); err != nil {
		return err
	}
	if u.ConvertibleTo != "" && !u.Factor.IsPositive() {
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("field", "factor")
	}
	return nil
}

// ConvertTo converts qty from u into target. Converting to a unit with the
// same name is the identity; otherwise target must be u.ConvertibleTo.
func (u MeasurementUnit) ConvertTo(qty decimal.Decimal, target MeasurementUnit) (decimal.Decimal, error) {
	if u.Equal(target) {
		return qty, nil
	}
	if u.ConvertibleTo == "" || u.ConvertibleTo != target.Name {
		return decimal.Zero, apperror.NewValidation("units are not convertible").
			WithDetail("source", u.Name).
			WithDetail("target", target.Name)
	}
	return qty.Mul(u.Factor), nil
}

// Computation records how an observation was produced.
type Computation struct {
	ID          id.Surrogate `db:"id" json:"id"`
	URI         string       `db:"uri" json:"uri" validate:"required,max=60"`
	Description string       `db:"description" json:"description,omitempty" validate:"max=255"`
}

func (c Computation) EntityKind() entity.Kind { return entity.KindComputation }
func (c Computation) Key() string             { return id.Format(c.ID) }

// Validate implements entity.Validatable.
func (c *Computation) Validate(ctx context.Context) error {
	return entity.ValidateStruct("computation", c)
}

// Type tags how Raw is interpreted.
type Type string

const (
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeText    Type = "text"
)

// Status is an SDMX observation status code.
type Status string

const (
	StatusNormal    Status = "A"
	StatusEstimated Status = "E"
	StatusForecast  Status = "F"
	StatusMissing   Status = "M"
	StatusProvision Status = "P"
)

// Value is the measured payload of an observation.
type Value struct {
	ID     id.Surrogate `db:"id" json:"id"`
	Status Status       `db:"obs_status" json:"obsStatus,omitempty" validate:"max=50"`
	Type   Type         `db:"value_type" json:"valueType" validate:"required,oneof=integer float text"`
	Raw    string       `db:"value" json:"value" validate:"max=50"`
}

func (v Value) EntityKind() entity.Kind { return entity.KindValue }
func (v Value) Key() string             { return id.Format(v.ID) }

// Validate implements entity.Validatable.
func (v *Value) Validate(ctx context.Context) error {
	if err := entity.ValidateStruct("value", v); err != nil {
		return err
	}
	if v.Status == StatusMissing || v.Type == TypeText {
		return nil
	}
	if _, err := v.Decimal(); err != nil {
		return err
	}
	return nil
}

// IsNumeric reports whether Raw holds a number.
func (v Value) IsNumeric() bool {
	return v.Type == TypeInteger || v.Type == TypeFloat
}

// Decimal parses Raw for numeric types, preserving precision.
func (v Value) Decimal() (decimal.Decimal, error) {
	if !v.IsNumeric() {
		return decimal.Zero, apperror.NewValidation("value is not numeric").
			WithDetail("value_type", string(v.Type))
	}
	d, err := decimal.NewFromString(v.Raw)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("value does not parse as a number").
			WithDetail("value", v.Raw).
			WithCause(err)
	}
	if v.Type == TypeInteger && !d.Equal(d.Truncate(0)) {
		return decimal.Zero, apperror.NewValidation("integer value has a fractional part").
			WithDetail("value", v.Raw)
	}
	return d, nil
}
