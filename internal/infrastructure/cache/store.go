// Package cache provides a read-through LRU cache in front of any
// domain.Store, invalidated by local writes, failed transactions and
// PostgreSQL NOTIFY events.
package cache

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"landportal/internal/core/entity"
	"landportal/internal/core/tx"
	"landportal/internal/domain"
	"landportal/pkg/logger"
)

var _ domain.Store = (*Store)(nil)

type childrenKey struct {
	parent   entity.Ref
	relation domain.Relation
}

// Store caches Load and LoadChildren results of the wrapped store. Writes go
// straight through and drop every cached entry they can affect.
type Store struct {
	next     domain.Store
	rows     *lru.Cache[entity.Ref, entity.Entity]
	children *lru.Cache[childrenKey, []entity.Entity]
}

// NewStore wraps next with caches holding up to size entries each.
func NewStore(next domain.Store, size int) (*Store, error) {
	rows, err := lru.New[entity.Ref, entity.Entity](size)
	if err != nil {
		return nil, fmt.Errorf("create row cache: %w", err)
	}
	children, err := lru.New[childrenKey, []entity.Entity](size)
	if err != nil {
		return nil, fmt.Errorf("create children cache: %w", err)
	}
	return &Store{next: next, rows: rows, children: children}, nil
}

// Load implements domain.Store.
func (s *Store) Load(ctx context.Context, kind entity.Kind, key string) (entity.Entity, error) {
	ref := entity.Ref{Kind: kind, Key: key}
	if e, ok := s.rows.Get(ref); ok {
		return e, nil
	}

	e, err := s.next.Load(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	s.rows.Add(ref, e)
	return e, nil
}

// LoadChildren implements domain.Store. Callers get their own slice.
func (s *Store) LoadChildren(ctx context.Context, parent entity.Entity, relation domain.Relation) ([]entity.Entity, error) {
	k := childrenKey{parent: entity.RefOf(parent), relation: relation}
	if out, ok := s.children.Get(k); ok {
		return slices.Clone(out), nil
	}

	out, err := s.next.LoadChildren(ctx, parent, relation)
	if err != nil {
		return nil, err
	}
	s.children.Add(k, slices.Clone(out))
	return out, nil
}

// Save implements domain.Store.
func (s *Store) Save(ctx context.Context, e entity.Entity) error {
	if err := s.next.Save(ctx, e); err != nil {
		return err
	}
	s.forget(entity.RefOf(e))
	return nil
}

// Delete implements domain.Store.
func (s *Store) Delete(ctx context.Context, e entity.Entity) error {
	if err := s.next.Delete(ctx, e); err != nil {
		return err
	}
	s.forget(entity.RefOf(e))
	return nil
}

// forget drops ref and every children list, any of which may hold it.
func (s *Store) forget(ref entity.Ref) {
	s.rows.Remove(ref)
	s.children.Purge()
}

// InvalidateKind drops every cached row of kind and every children list.
func (s *Store) InvalidateKind(kind entity.Kind) {
	for _, ref := range s.rows.Keys() {
		if ref.Kind == kind {
			s.rows.Remove(ref)
		}
	}
	s.children.Purge()
}

// Purge empties both caches.
func (s *Store) Purge() {
	s.rows.Purge()
	s.children.Purge()
}

// Len returns the number of cached rows.
func (s *Store) Len() int {
	return s.rows.Len()
}

// TxManager purges the cache when a transaction fails, since rows read or
// written inside it may have been rolled back.
type TxManager struct {
	next  tx.Manager
	cache *Store
}

// NewTxManager wraps next so that failed transactions purge cache.
func NewTxManager(next tx.Manager, cache *Store) *TxManager {
	return &TxManager{next: next, cache: cache}
}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := m.next.RunInTransaction(ctx, fn)
	if err != nil {
		m.cache.Purge()
		logger.Debug(ctx, "store cache purged after failed transaction", "error", err)
	}
	return err
}
