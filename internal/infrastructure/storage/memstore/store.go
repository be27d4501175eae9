// Package memstore provides an in-memory domain.Store and a snapshot-based
// transaction manager. It backs tests and the "memory" storage driver.
package memstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/domain"
	"landportal/pkg/logger"
)

// Store keeps rows by kind and key.
type Store struct {
	mu   sync.RWMutex
	rows map[entity.Kind]map[string]entity.Entity
}

// New creates an empty store.
func New() *Store {
	return &Store{rows: make(map[entity.Kind]map[string]entity.Entity)}
}

// Load implements domain.Store.
func (s *Store) Load(_ context.Context, kind entity.Kind, key string) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.rows[kind][key]; ok {
		return e, nil
	}
	return nil, apperror.NewNotFound(string(kind), key)
}

// Save implements domain.Store.
func (s *Store) Save(ctx context.Context, e entity.Entity) error {
	if e == nil {
		return apperror.NewValidation("entity is required")
	}
	if e.Key() == "" {
		return apperror.NewValidation("entity key is required").
			WithDetail("kind", string(e.EntityKind()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.rows[e.EntityKind()]
	if !ok {
		byKey = make(map[string]entity.Entity)
		s.rows[e.EntityKind()] = byKey
	}
	byKey[e.Key()] = e
	logger.Debug(ctx, "memstore save", "kind", e.EntityKind(), "key", e.Key())
	return nil
}

// LoadChildren implements domain.Store. Results are ordered by key.
func (s *Store) LoadChildren(_ context.Context, parent entity.Entity, relation domain.Relation) ([]entity.Entity, error) {
	spec, err := domain.Spec(relation, parent)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.Entity
	if spec.IsLink() {
		for _, link := range s.rows[spec.Link] {
			from, to, ok := spec.LinkEnds(link)
			if !ok || from != parent.Key() {
				continue
			}
			if child, ok := s.rows[spec.Child][to]; ok {
				out = append(out, child)
			}
		}
	} else {
		for _, child := range s.rows[spec.Child] {
			if spec.Matches(parent, child) {
				out = append(out, child)
			}
		}
	}
	slices.SortFunc(out, func(a, b entity.Entity) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out, nil
}

// Delete implements domain.Store. Rows still referenced through a relation
// are rejected with INTEGRITY_VIOLATION; deleting a missing row is a no-op.
func (s *Store) Delete(ctx context.Context, e entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[e.EntityKind()][e.Key()]; !ok {
		return nil
	}
	if err := s.checkUnreferenced(e); err != nil {
		return err
	}
	delete(s.rows[e.EntityKind()], e.Key())
	logger.Debug(ctx, "memstore delete", "kind", e.EntityKind(), "key", e.Key())
	return nil
}

func (s *Store) checkUnreferenced(e entity.Entity) error {
	self := entity.RefOf(e)
	for _, rel := range domain.Relations() {
		spec, err := domain.Spec(rel, e)
		if err != nil {
			continue
		}
		if spec.Parent == "" && spec.Child == e.EntityKind() {
			continue
		}
		if spec.IsLink() {
			for _, link := range s.rows[spec.Link] {
				if from, _, ok := spec.LinkEnds(link); ok && from == e.Key() {
					return referenced(e, rel, entity.RefOf(link))
				}
			}
			continue
		}
		for _, child := range s.rows[spec.Child] {
			if entity.RefOf(child) != self && spec.Matches(e, child) {
				return referenced(e, rel, entity.RefOf(child))
			}
		}
	}
	return nil
}

func referenced(e entity.Entity, rel domain.Relation, by entity.Ref) error {
	return apperror.NewIntegrity(string(e.EntityKind()), e.Key(), "row is still referenced").
		WithDetail("relation", string(rel)).
		WithDetail("referenced_by", by.String())
}

// Len returns the number of rows of kind.
func (s *Store) Len(kind entity.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[kind])
}

func (s *Store) snapshot() map[entity.Kind]map[string]entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[entity.Kind]map[string]entity.Entity, len(s.rows))
	for kind, byKey := range s.rows {
		snap[kind] = maps.Clone(byKey)
	}
	return snap
}

func (s *Store) restore(snap map[entity.Kind]map[string]entity.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = snap
}
