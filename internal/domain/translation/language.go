// Package translation provides the multilingual overlay: localized text
// keyed by (language code, owning entity) layered over language-neutral
// entities.
package translation

import (
	"context"
	"maps"
	"sort"

	"golang.org/x/text/language"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
)

// Language is a known two-letter language code (ISO 639-1).
type Language struct {
	Code string `db:"lang_code" json:"langCode" validate:"required,len=2,lowercase"`
	Name string `db:"name" json:"name" validate:"max=25"`
}

func (l Language) EntityKind() entity.Kind { return entity.KindLanguage }
func (l Language) Key() string             { return l.Code }

// Validate implements entity.Validatable.
func (l *Language) Validate(ctx context.Context) error {
	if err := entity.ValidateStruct("language", l); err != nil {
		return err
	}
	return ValidateCode(l.Code)
}

// ValidateCode checks that code is a two-letter ISO 639 base language.
func ValidateCode(code string) error {
	if len(code) != 2 {
		return apperror.NewValidation("language code must be exactly 2 characters").
			WithDetail("field", "lang_code").
			WithDetail("value", code)
	}
	if _, err := language.ParseBase(code); err != nil {
		return apperror.NewValidation("language code is not an ISO 639 language").
			WithDetail("field", "lang_code").
			WithDetail("value", code).
			WithCause(err)
	}
	return nil
}

// Languages is the registry of known language codes.
// Not synchronized; the owning catalog serializes access.
type Languages struct {
	byCode map[string]Language
}

// NewLanguages creates an empty registry.
func NewLanguages() *Languages {
	return &Languages{byCode: make(map[string]Language)}
}

// Add registers or renames a language.
func (r *Languages) Add(ctx context.Context, l Language) error {
	if err := l.Validate(ctx); err != nil {
		return err
	}
	r.byCode[l.Code] = l
	return nil
}

// Clone returns an independent copy of the registry.
func (r *Languages) Clone() *Languages {
	return &Languages{byCode: maps.Clone(r.byCode)}
}

// Get returns the language with the given code.
func (r *Languages) Get(code string) (Language, bool) {
	l, ok := r.byCode[code]
	return l, ok
}

// Require returns an UNKNOWN_REFERENCE error when code is not registered.
func (r *Languages) Require(code string) error {
	if _, ok := r.byCode[code]; !ok {
		return apperror.NewUnknownReference("language", code)
	}
	return nil
}

// List returns all languages ordered by code.
func (r *Languages) List() []Language {
	out := make([]Language, 0, len(r.byCode))
	for _, l := range r.byCode {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

