package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
	"landportal/internal/domain/dataset"
	"landportal/internal/domain/indicator"
	"landportal/internal/domain/organization"
	"landportal/internal/domain/translation"
	"landportal/internal/domain/value"
)

// table maps one entity kind onto one SQL table.
type table interface {
	name() string
	columns() []string
	keyColumns() []string

	// row returns the column values of e.
	row(e entity.Entity) (map[string]any, error)

	// where turns a storage key back into key column predicates.
	where(key string) (squirrel.Eq, error)

	// selectAll runs sql and converts every row back to an entity.
	selectAll(ctx context.Context, q pgxscan.Querier, sql string, args ...any) ([]entity.Entity, error)
}

// rowTable is a table whose rows scan into R and convert to the entity T.
type rowTable[T entity.Entity, R any] struct {
	tableName string
	keys      []string
	cols      []string
	toRow     func(T) R
	fromRow   func(R) (T, error)
	keyOf     func(key string) (squirrel.Eq, error)
}

func newRowTable[T entity.Entity, R any](
	tableName string,
	keys []string,
	toRow func(T) R,
	fromRow func(R) (T, error),
	keyOf func(string) (squirrel.Eq, error),
) *rowTable[T, R] {
	return &rowTable[T, R]{
		tableName: tableName,
		keys:      keys,
		cols:      ExtractDBColumns[R](),
		toRow:     toRow,
		fromRow:   fromRow,
		keyOf:     keyOf,
	}
}

// newEntityTable maps T directly through its own db tags.
func newEntityTable[T entity.Entity](tableName string, keys []string, keyOf func(string) (squirrel.Eq, error)) *rowTable[T, T] {
	same := func(v T) T { return v }
	return newRowTable(tableName, keys, same, func(v T) (T, error) { return v, nil }, keyOf)
}

func (t *rowTable[T, R]) name() string         { return t.tableName }
func (t *rowTable[T, R]) columns() []string    { return t.cols }
func (t *rowTable[T, R]) keyColumns() []string { return t.keys }

func (t *rowTable[T, R]) row(e entity.Entity) (map[string]any, error) {
	v, ok := e.(T)
	if !ok {
		return nil, apperror.NewInternal(fmt.Errorf("table %s cannot store %T", t.tableName, e))
	}
	return StructToMap(t.toRow(v)), nil
}

func (t *rowTable[T, R]) where(key string) (squirrel.Eq, error) {
	return t.keyOf(key)
}

func (t *rowTable[T, R]) selectAll(ctx context.Context, q pgxscan.Querier, sql string, args ...any) ([]entity.Entity, error) {
	var rows []R
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, err
	}
	out := make([]entity.Entity, 0, len(rows))
	for _, r := range rows {
		v, err := t.fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func byStringID(key string) (squirrel.Eq, error) {
	if key == "" {
		return nil, apperror.NewValidation("storage key is required")
	}
	return squirrel.Eq{"id": key}, nil
}

func bySurrogateID(key string) (squirrel.Eq, error) {
	v, err := id.Parse(key)
	if err != nil {
		return nil, err
	}
	return squirrel.Eq{"id": v}, nil
}

func byLanguageCode(key string) (squirrel.Eq, error) {
	if key == "" {
		return nil, apperror.NewValidation("storage key is required")
	}
	return squirrel.Eq{"lang_code": key}, nil
}

func byTranslationKey(key string) (squirrel.Eq, error) {
	owner, lang, entityID, err := translation.ParseRecordKey(key)
	if err != nil {
		return nil, err
	}
	return squirrel.Eq{"owner_kind": string(owner), "lang_code": lang, "entity_id": entityID}, nil
}

func byLinkKey(key string) (squirrel.Eq, error) {
	l, ok := dataset.ParseIndicatorLinkKey(key)
	if !ok {
		return nil, apperror.NewValidation("invalid membership key").WithDetail("value", key)
	}
	return squirrel.Eq{"dataset_id": l.DatasetID, "indicator_id": l.IndicatorID}, nil
}

// tables maps every stored kind to its table.
var tables = map[entity.Kind]table{
	entity.KindLanguage:        newEntityTable[translation.Language]("language", []string{"lang_code"}, byLanguageCode),
	entity.KindLicense:         newEntityTable[dataset.License]("license", []string{"id"}, bySurrogateID),
	entity.KindMeasurementUnit: newEntityTable[value.MeasurementUnit]("measurement_unit", []string{"id"}, bySurrogateID),
	entity.KindComputation:     newEntityTable[value.Computation]("computation", []string{"id"}, bySurrogateID),
	entity.KindValue:           newEntityTable[value.Value]("value", []string{"id"}, bySurrogateID),
	entity.KindIndicatorGroup:  newEntityTable[indicator.Group]("indicator_group", []string{"id"}, bySurrogateID),
	entity.KindTopic:           newEntityTable[indicator.Topic]("topic", []string{"id"}, byStringID),
	entity.KindOrganization:    newEntityTable[organization.Organization]("organization", []string{"id"}, byStringID),
	entity.KindDataSource:      newEntityTable[organization.DataSource]("datasource", []string{"id"}, byStringID),
	entity.KindDataset:         newEntityTable[dataset.Dataset]("dataset", []string{"id"}, byStringID),
	entity.KindDimension:       newRowTable("dimension", []string{"id"}, dimensionToRow, dimensionFromRow, bySurrogateID),
	entity.KindIndicator:       newEntityTable[indicator.Indicator]("indicator", []string{"id"}, byStringID),
	entity.KindRelationship:    newEntityTable[indicator.Relationship]("indicator_relationship", []string{"id"}, bySurrogateID),
	entity.KindMembership:      newEntityTable[dataset.IndicatorLink]("dataset_indicator", []string{"dataset_id", "indicator_id"}, byLinkKey),
	entity.KindSlice:           newEntityTable[dataset.Slice]("slice", []string{"id"}, byStringID),
	entity.KindObservation:     newEntityTable[dataset.Observation]("observation", []string{"id"}, byStringID),
	entity.KindTranslation:     newEntityTable[translation.Record]("translation", []string{"owner_kind", "lang_code", "entity_id"}, byTranslationKey),
}

func tableFor(kind entity.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, apperror.NewValidation("entity kind is not stored").
			WithDetail("kind", string(kind))
	}
	return t, nil
}

// KindOfTable returns the entity kind stored in the SQL table name.
func KindOfTable(name string) (entity.Kind, bool) {
	for kind, t := range tables {
		if t.name() == name {
			return kind, true
		}
	}
	return "", false
}
