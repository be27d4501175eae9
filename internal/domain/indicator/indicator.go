// Package indicator provides the indicator taxonomy: plain and compound
// indicators sharing one id space, the compound-membership resolver, typed
// indicator relationships, topics and indicator groups.
package indicator

import (
	"context"
	"fmt"
	"time"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// Variant distinguishes plain indicators from compound ones.
type Variant string

const (
	VariantPlain    Variant = "indicator"
	VariantCompound Variant = "compound_indicator"
)

// Tendency is the preferred direction of an indicator's values.
type Tendency string

const (
	TendencyNone     Tendency = ""
	TendencyIncrease Tendency = "increase"
	TendencyDecrease Tendency = "decrease"
)

// Indicator is the polymorphic root. Compound indicators use the same struct
// with Variant set to VariantCompound.
//
// CompoundID is the only stored link between a member and its compound; the
// catalog fills it from the compound index on read.
type Indicator struct {
	ID                 string        `db:"id" json:"id"`
	Variant            Variant       `db:"type" json:"type" validate:"required,oneof=indicator compound_indicator"`
	Name               string        `db:"name" json:"name" validate:"max=50"`
	Description        string        `db:"description" json:"description,omitempty" validate:"max=255"`
	PreferableTendency Tendency      `db:"preferable_tendency" json:"preferableTendency,omitempty" validate:"max=100"`
	Starred            bool          `db:"starred" json:"starred"`
	LastUpdate         *time.Time    `db:"last_update" json:"lastUpdate,omitempty"`
	MeasurementUnitID  *id.Surrogate `db:"measurement_unit_id" json:"measurementUnitId,omitempty"`
	TopicID            *string       `db:"topic_id" json:"topicId,omitempty"`
	CompoundID         *string       `db:"compound_indicator_id" json:"compoundIndicatorId,omitempty"`

	// GroupID is the indicator group of a compound indicator.
	GroupID *id.Surrogate `db:"indicator_ref_group_id" json:"indicatorRefGroupId,omitempty"`
}

// New creates a plain indicator.
func New(indicatorID, name string) *Indicator {
	return &Indicator{ID: indicatorID, Variant: VariantPlain, Name: name}
}

// NewCompound creates a compound indicator.
func NewCompound(indicatorID, name string) *Indicator {
	return &Indicator{ID: indicatorID, Variant: VariantCompound, Name: name}
}

func (i Indicator) EntityKind() entity.Kind { return entity.KindIndicator }
func (i Indicator) Key() string             { return i.ID }

// IsCompound reports whether i aggregates other indicators.
func (i Indicator) IsCompound() bool { return i.Variant == VariantCompound }

// Equal compares by id.
func (i Indicator) Equal(other Indicator) bool { return i.ID == other.ID }

// Validate implements entity.Validatable.
func (i *Indicator) Validate(ctx context.Context) error {
	if err := id.ValidateExternal("indicator", i.ID); err != nil {
		return err
	}
	if err := entity.ValidateStruct("indicator", i); err != nil {
		return err
	}
	if i.GroupID != nil && !i.IsCompound() {
		return apperror.NewValidation("only compound indicators have an indicator group").
			WithDetail("field", "indicator_ref_group_id").
			WithDetail("id", i.ID)
	}
	return nil
}

func (i Indicator) String() string {
	return fmt.Sprintf("<%s id=%q name=%q>", i.Variant, i.ID, i.Name)
}

// Topic classifies indicators.
type Topic struct {
	ID   string `db:"id" json:"id" validate:"required,max=6"`
	Name string `db:"name" json:"name" validate:"max=255"`
}

func (t Topic) EntityKind() entity.Kind { return entity.KindTopic }
func (t Topic) Key() string             { return t.ID }

// Validate implements entity.Validatable.
func (t *Topic) Validate(ctx context.Context) error {
	return entity.ValidateStruct("topic", t)
}

// Group collects the observations computed for a compound indicator.
type Group struct {
	ID id.Surrogate `db:"id" json:"id"`
}

func (g Group) EntityKind() entity.Kind { return entity.KindIndicatorGroup }
func (g Group) Key() string             { return id.Format(g.ID) }
