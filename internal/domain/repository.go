// Package domain provides the storage contract the catalog reads from and
// writes to, the named child relations used to rehydrate graphs, and
// lifecycle hooks around persistence.
package domain

import (
	"context"

	"landportal/internal/core/entity"
)

// --- Storage contract ---

// Store is the storage collaborator. Implementations upsert by primary key
// and report missing rows as NOT_FOUND AppErrors.
type Store interface {
	// Load retrieves one entity by kind and key.
	Load(ctx context.Context, kind entity.Kind, key string) (entity.Entity, error)

	// Save inserts or replaces e by primary key. Translation rows are keyed by
	// (owner, language, entity) and membership rows by (dataset, indicator).
	Save(ctx context.Context, e entity.Entity) error

	// LoadChildren returns the entities reached from parent through relation.
	// Ordered relations come back in key order.
	LoadChildren(ctx context.Context, parent entity.Entity, relation Relation) ([]entity.Entity, error)

	// Delete removes e. A row that is still referenced yields INTEGRITY_VIOLATION.
	Delete(ctx context.Context, e entity.Entity) error
}

// --- Hooks ---

// HookEvent represents a persistence lifecycle point.
type HookEvent string

const (
	BeforeSave   HookEvent = "before_save"
	AfterSave    HookEvent = "after_save"
	BeforeDelete HookEvent = "before_delete"
	AfterDelete  HookEvent = "after_delete"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of hooks registered for event.
func (r *HookRegistry[T]) Len(event HookEvent) int {
	return len(r.hooks[event])
}
