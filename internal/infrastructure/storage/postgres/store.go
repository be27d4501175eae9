package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/domain"
	"landportal/pkg/logger"
)

var _ domain.Store = (*Store)(nil)

// linkColumns names the dataset_indicator column holding each end's key.
var linkColumns = map[entity.Kind]string{
	entity.KindDataset:   "dataset_id",
	entity.KindIndicator: "indicator_id",
}

// Store implements domain.Store over the catalog schema. Queries run in the
// transaction carried by ctx when there is one.
type Store struct {
	txm *TxManager
}

// NewStore creates a store on txm.
func NewStore(txm *TxManager) *Store {
	return &Store{txm: txm}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Load implements domain.Store.
func (s *Store) Load(ctx context.Context, kind entity.Kind, key string) (entity.Entity, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	where, err := t.where(key)
	if err != nil {
		return nil, err
	}

	sql, args, err := Builder().Select(t.columns()...).From(t.name()).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	ref := entity.Ref{Kind: kind, Key: key}
	found, err := t.selectAll(ctx, s.txm.GetQuerier(ctx), sql, args...)
	if err != nil {
		return nil, mapError("load", ref, err)
	}
	if len(found) == 0 {
		return nil, apperror.NewNotFound(string(kind), key)
	}
	return found[0], nil
}

// Save implements domain.Store as INSERT ... ON CONFLICT DO UPDATE.
func (s *Store) Save(ctx context.Context, e entity.Entity) error {
	if e == nil {
		return apperror.NewValidation("entity is required")
	}
	if e.Key() == "" {
		return apperror.NewValidation("entity key is required").
			WithDetail("kind", string(e.EntityKind()))
	}
	t, err := tableFor(e.EntityKind())
	if err != nil {
		return err
	}
	row, err := t.row(e)
	if err != nil {
		return err
	}

	sql, args, err := upsert(t, row).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapError("save", entity.RefOf(e), err)
	}

	logger.Debug(ctx, "postgres save", "table", t.name(), "key", e.Key())
	return nil
}

// LoadChildren implements domain.Store. Results are ordered by key.
func (s *Store) LoadChildren(ctx context.Context, parent entity.Entity, relation domain.Relation) ([]entity.Entity, error) {
	spec, err := domain.Spec(relation, parent)
	if err != nil {
		return nil, err
	}
	child, err := tableFor(spec.Child)
	if err != nil {
		return nil, err
	}
	q, err := childrenQuery(spec, child, parent)
	if err != nil {
		return nil, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build children query: %w", err)
	}
	out, err := child.selectAll(ctx, s.txm.GetQuerier(ctx), sql, args...)
	if err != nil {
		return nil, mapError("load children", entity.RefOf(parent), err)
	}

	// Keys compare as strings on every driver.
	slices.SortFunc(out, func(a, b entity.Entity) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out, nil
}

// Delete implements domain.Store. Deleting a missing row is a no-op; a
// referenced row fails on its foreign keys with INTEGRITY_VIOLATION.
func (s *Store) Delete(ctx context.Context, e entity.Entity) error {
	t, err := tableFor(e.EntityKind())
	if err != nil {
		return err
	}
	where, err := t.where(e.Key())
	if err != nil {
		return err
	}

	sql, args, err := Builder().Delete(t.name()).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError("delete", entity.RefOf(e), err)
	}

	logger.Debug(ctx, "postgres delete", "table", t.name(), "key", e.Key(), "rows", tag.RowsAffected())
	return nil
}

// upsert builds the insert for row, replacing every non-key column on
// conflict. Tables made of key columns only ignore the conflict.
func upsert(t table, row map[string]any) squirrel.InsertBuilder {
	cols := t.columns()
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = row[c]
	}

	keys := t.keyColumns()
	var sets []string
	for _, c := range cols {
		if !slices.Contains(keys, c) {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}

	conflict := "ON CONFLICT (" + strings.Join(keys, ", ") + ") "
	if len(sets) == 0 {
		conflict += "DO NOTHING"
	} else {
		conflict += "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return Builder().Insert(t.name()).Columns(cols...).Values(vals...).Suffix(conflict)
}

// childrenQuery selects the rows of child reached from parent through spec.
func childrenQuery(spec domain.RelationSpec, child table, parent entity.Entity) (squirrel.SelectBuilder, error) {
	if spec.IsLink() {
		from, ok := linkColumns[parent.EntityKind()]
		to, ok2 := linkColumns[spec.Child]
		if !ok || !ok2 {
			return squirrel.SelectBuilder{}, apperror.NewValidation("relation has no link columns").
				WithDetail("kind", string(parent.EntityKind()))
		}
		cols := make([]string, len(child.columns()))
		for i, c := range child.columns() {
			cols[i] = "c." + c
		}
		return Builder().
			Select(cols...).
			From(child.name() + " c").
			Join(fmt.Sprintf("dataset_indicator m ON m.%s = c.id", to)).
			Where(squirrel.Eq{"m." + from: parent.Key()}), nil
	}

	// Translation rows reference their owner by text key and kind.
	if spec.Parent == "" {
		return Builder().
			Select(child.columns()...).
			From(child.name()).
			Where(squirrel.Eq{
				"owner_kind": string(parent.EntityKind()),
				spec.Column:  parent.Key(),
			}), nil
	}

	pt, err := tableFor(parent.EntityKind())
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	pk, err := pt.where(parent.Key())
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return Builder().
		Select(child.columns()...).
		From(child.name()).
		Where(squirrel.Eq{spec.Column: pk[pt.keyColumns()[0]]}), nil
}
