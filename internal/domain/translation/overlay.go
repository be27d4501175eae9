package translation

import (
	"errors"
	"maps"
	"sort"
	"strings"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
)

// ErrNoTranslation is returned by Localized when neither the requested nor
// the fallback language has a row. It is distinct from an empty name.
var ErrNoTranslation = errors.New("no translation available")

// Fields is the localized text of one row.
type Fields struct {
	Name        string `db:"name" json:"name" validate:"max=255"`
	Description string `db:"description" json:"description,omitempty" validate:"max=255"`
}

// Record is one translation row as seen by storage.
type Record struct {
	Owner    entity.Kind `db:"owner_kind" json:"ownerKind"`
	Lang     string      `db:"lang_code" json:"langCode"`
	EntityID string      `db:"entity_id" json:"entityId"`
	Fields
}

func (r Record) EntityKind() entity.Kind { return entity.KindTranslation }

// Key is owner|lang|entity.
func (r Record) Key() string {
	return RecordKey(r.Owner, r.Lang, r.EntityID)
}

// RecordKey builds the composite key of a translation row.
func RecordKey(owner entity.Kind, lang, entityID string) string {
	return strings.Join([]string{string(owner), lang, entityID}, entity.KeySeparator)
}

// ParseRecordKey splits a key built by RecordKey.
func ParseRecordKey(key string) (owner entity.Kind, lang, entityID string, err error) {
	parts := strings.SplitN(key, entity.KeySeparator, 3)
	if len(parts) != 3 {
		return "", "", "", apperror.NewValidation("malformed translation key").
			WithDetail("value", key)
	}
	return entity.Kind(parts[0]), parts[1], parts[2], nil
}

// Overlay holds the translation rows of one owner kind, at most one per
// (language, entity) pair.
type Overlay struct {
	owner entity.Kind
	langs *Languages
	rows  map[string]map[string]Fields // entity -> lang -> fields
}

// NewOverlay creates an overlay for owner whose language codes are checked
// against langs.
func NewOverlay(owner entity.Kind, langs *Languages) *Overlay {
	return &Overlay{
		owner: owner,
		langs: langs,
		rows:  make(map[string]map[string]Fields),
	}
}

// CloneWith returns an independent copy checking languages against langs.
func (o *Overlay) CloneWith(langs *Languages) *Overlay {
	rows := make(map[string]map[string]Fields, len(o.rows))
	for entityID, byLang := range o.rows {
		rows[entityID] = maps.Clone(byLang)
	}
	return &Overlay{owner: o.owner, langs: langs, rows: rows}
}

// Owner returns the entity kind the overlay translates.
func (o *Overlay) Owner() entity.Kind { return o.owner }

func (o *Overlay) check(entityID, lang string, f Fields) error {
	if entityID == "" {
		return apperror.NewValidation("translation entity id is required").
			WithDetail("owner", string(o.owner))
	}
	if err := o.langs.Require(lang); err != nil {
		return err
	}
	return entity.ValidateStruct("translation", &f)
}

// Upsert inserts or replaces the row for (lang, entityID). Calling it twice
// leaves a single row holding the second call's text.
func (o *Overlay) Upsert(entityID, lang string, f Fields) error {
	if err := o.check(entityID, lang, f); err != nil {
		return err
	}
	o.put(entityID, lang, f)
	return nil
}

// Insert is the strict path: an existing (lang, entityID) row is a DUPLICATE_ENTRY.
func (o *Overlay) Insert(entityID, lang string, f Fields) error {
	if err := o.check(entityID, lang, f); err != nil {
		return err
	}
	if _, ok := o.rows[entityID][lang]; ok {
		return apperror.NewDuplicate(string(o.owner)+" translation", "language", lang).
			WithDetail("entity_id", entityID)
	}
	o.put(entityID, lang, f)
	return nil
}

func (o *Overlay) put(entityID, lang string, f Fields) {
	byLang, ok := o.rows[entityID]
	if !ok {
		byLang = make(map[string]Fields, 2)
		o.rows[entityID] = byLang
	}
	byLang[lang] = f
}

// Get returns the exact row for (lang, entityID).
func (o *Overlay) Get(entityID, lang string) (Fields, bool) {
	f, ok := o.rows[entityID][lang]
	return f, ok
}

// Localized returns the row for lang, else the row for fallback, else
// ErrNoTranslation. An empty fallback disables the second lookup.
// Both codes must be registered languages.
func (o *Overlay) Localized(entityID, lang, fallback string) (Record, error) {
	if err := o.langs.Require(lang); err != nil {
		return Record{}, err
	}
	if fallback != "" {
		if err := o.langs.Require(fallback); err != nil {
			return Record{}, err
		}
	}

	for _, code := range []string{lang, fallback} {
		if code == "" {
			continue
		}
		if f, ok := o.rows[entityID][code]; ok {
			return Record{Owner: o.owner, Lang: code, EntityID: entityID, Fields: f}, nil
		}
	}
	return Record{}, ErrNoTranslation
}

// Languages lists the codes that have a row for entityID.
func (o *Overlay) Languages(entityID string) []string {
	byLang := o.rows[entityID]
	out := make([]string, 0, len(byLang))
	for code := range byLang {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Has reports whether entityID has any row.
func (o *Overlay) Has(entityID string) bool {
	return len(o.rows[entityID]) > 0
}

// Drop removes every row of entityID and returns them.
func (o *Overlay) Drop(entityID string) []Record {
	recs := o.Records(entityID)
	delete(o.rows, entityID)
	return recs
}

// Records returns the rows of entityID ordered by language.
func (o *Overlay) Records(entityID string) []Record {
	out := make([]Record, 0, len(o.rows[entityID]))
	for _, code := range o.Languages(entityID) {
		out = append(out, Record{Owner: o.owner, Lang: code, EntityID: entityID, Fields: o.rows[entityID][code]})
	}
	return out
}

// All returns every row ordered by entity then language.
func (o *Overlay) All() []Record {
	ids := make([]string, 0, len(o.rows))
	for e := range o.rows {
		ids = append(ids, e)
	}
	sort.Strings(ids)

	var out []Record
	for _, e := range ids {
		out = append(out, o.Records(e)...)
	}
	return out
}

// Load restores a stored row without the strict-insert check.
func (o *Overlay) Load(r Record) error {
	if r.Owner != o.owner {
		return apperror.NewValidation("translation belongs to another entity kind").
			WithDetail("owner", string(r.Owner)).
			WithDetail("expected", string(o.owner))
	}
	return o.Upsert(r.EntityID, r.Lang, r.Fields)
}
